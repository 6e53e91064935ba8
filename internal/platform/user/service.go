package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

// Service handles account business logic.
type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Register creates a new account. The wallet address is optional and can
// be attached later with UpdateWalletAddress.
func (s *Service) Register(ctx context.Context, email, password, walletAddress string) (*User, error) {
	if email == "" {
		return nil, ErrInvalidEmail
	}

	exists, err := s.repo.Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check if user exists: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	u := &User{
		ID:            uuid.New(),
		Email:         email,
		WalletAddress: walletAddress,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// Login authenticates with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Don't reveal that the user doesn't exist
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := u.CheckPassword(password); err != nil {
		return nil, err
	}

	u.UpdateLastLogin()
	if err := s.repo.Update(ctx, u); err != nil {
		// Non-critical, login still succeeds
		s.log.WithContext(ctx).WithError(err).Warn("failed to update last login", "user_id", u.ID)
	}
	return u, nil
}

// UpdateWalletAddress attaches or replaces the tracked wallet address.
func (s *Service) UpdateWalletAddress(ctx context.Context, id uuid.UUID, address string) (*User, error) {
	if address != "" && !isValidAddress(address) {
		return nil, ErrInvalidWalletAddress
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.WalletAddress = address
	u.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}
