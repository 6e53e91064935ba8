package tracker

import (
	"context"

	"github.com/google/uuid"
)

// Store persists tracker documents and the operation log. Load returns a
// fresh empty document when the user has none yet.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*Document, error)
	Save(ctx context.Context, userID uuid.UUID, doc *Document) error
	AppendOperation(ctx context.Context, userID uuid.UUID, op Operation) error
	Operations(ctx context.Context, userID uuid.UUID, limit int) ([]Operation, error)
}
