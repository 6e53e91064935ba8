package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for accounts.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Exists reports whether an account with the given email exists.
	Exists(ctx context.Context, email string) (bool, error)

	// ListWithWallet returns every account with a bound wallet address,
	// oldest first. Used by the background sync jobs.
	ListWithWallet(ctx context.Context) ([]*User, error)
}
