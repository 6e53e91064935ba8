package middleware

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

// Logger logs one line per request after the handler returns. Client
// errors log at warn, server errors at error.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			// Propagate chi's request ID into the logger's typed key so
			// deeper layers pick it up via WithContext.
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, reqID))
			}

			next.ServeHTTP(ww, r)

			entry := log.WithContext(r.Context()).With(
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			switch status := ww.Status(); {
			case status >= http.StatusInternalServerError:
				entry.Error("request failed")
			case status >= http.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
		})
	}
}
