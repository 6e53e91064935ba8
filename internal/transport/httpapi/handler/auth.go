package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/platform/user"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/middleware"
)

// UserServiceInterface defines the user operations needed by AuthHandler
type UserServiceInterface interface {
	Register(ctx context.Context, email, password, walletAddress string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
	UpdateWalletAddress(ctx context.Context, id uuid.UUID, address string) (*user.User, error)
}

// JWTServiceInterface defines the interface for JWT operations
type JWTServiceInterface interface {
	GenerateToken(userID uuid.UUID, email string) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userService UserServiceInterface
	jwtService  JWTServiceInterface
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService UserServiceInterface, jwtService JWTServiceInterface) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo represents user information (without sensitive data)
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

func userInfo(u *user.User) *UserInfo {
	return &UserInfo{
		ID:            u.ID.String(),
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
	}
}

// Register handles user registration (POST /auth/register)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" {
		respondError(w, "email is required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return
	}

	registered, err := h.userService.Register(r.Context(), req.Email, req.Password, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserAlreadyExists):
			respondError(w, "user with this email already exists", http.StatusConflict)
		case errors.Is(err, user.ErrPasswordTooShort):
			respondError(w, "password must be at least 8 characters", http.StatusBadRequest)
		case errors.Is(err, user.ErrInvalidEmail):
			respondError(w, "invalid email address", http.StatusBadRequest)
		case errors.Is(err, user.ErrInvalidWalletAddress):
			respondError(w, "invalid wallet address", http.StatusBadRequest)
		default:
			respondError(w, "failed to register user", http.StatusInternalServerError)
		}
		return
	}

	token, err := h.jwtService.GenerateToken(registered.ID, registered.Email)
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, AuthResponse{Token: token, User: userInfo(registered)}, http.StatusCreated)
}

// Login handles user login (POST /auth/login)
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	authed, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidPassword) {
			respondError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		respondError(w, "failed to login", http.StatusInternalServerError)
		return
	}

	token, err := h.jwtService.GenerateToken(authed.ID, authed.Email)
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, AuthResponse{Token: token, User: userInfo(authed)}, http.StatusOK)
}

// WalletRequest represents the wallet attachment request body
type WalletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// UpdateWallet handles PUT /me/wallet
func (h *AuthHandler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req WalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.userService.UpdateWalletAddress(r.Context(), userID, req.WalletAddress)
	if err != nil {
		if errors.Is(err, user.ErrInvalidWalletAddress) {
			respondError(w, "invalid wallet address", http.StatusBadRequest)
			return
		}
		respondError(w, "failed to update wallet address", http.StatusInternalServerError)
		return
	}

	respondJSON(w, userInfo(updated), http.StatusOK)
}
