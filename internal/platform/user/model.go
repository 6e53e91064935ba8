package user

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an account holding one tracker document. WalletAddress is the
// Gnosis Pay safe whose transactions the tracker follows; it may be set
// after registration.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	WalletAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   *time.Time
}

// Validate validates the account fields.
func (u *User) Validate() error {
	if err := u.ValidateEmail(); err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return ErrInvalidPasswordHash
	}
	if u.WalletAddress != "" && !isValidAddress(u.WalletAddress) {
		return ErrInvalidWalletAddress
	}
	return nil
}

// ValidateEmail validates only the email field.
func (u *User) ValidateEmail() error {
	if u.Email == "" || !isValidEmail(u.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// SetPassword hashes and sets the user's password.
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword checks if the provided password matches the stored hash.
func (u *User) CheckPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return ErrInvalidPassword
		}
		return fmt.Errorf("failed to check password: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last login timestamp.
func (u *User) UpdateLastLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// isValidEmail checks if the email format is valid
func isValidEmail(email string) bool {
	// RFC 5322 compliant email validation (simplified)
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// isValidAddress checks for a 0x-prefixed 20-byte hex address.
func isValidAddress(addr string) bool {
	addressRegex := regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	return addressRegex.MatchString(addr)
}
