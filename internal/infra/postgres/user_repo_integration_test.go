//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/gnosistrack/internal/platform/user"
)

func setupUserRepo(t *testing.T) (*UserRepository, context.Context) {
	ctx := context.Background()
	require.NoError(t, testDB.Reset(ctx))

	return NewUserRepository(testDB.Pool), ctx
}

func newUser(t *testing.T, email, walletAddress string) *user.User {
	now := time.Now().UTC()
	u := &user.User{
		ID:            uuid.New(),
		Email:         email,
		WalletAddress: walletAddress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, u.SetPassword("correct-horse-battery"))
	return u
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo, ctx := setupUserRepo(t)

	u := newUser(t, "alice@example.com", "0x1111111111111111111111111111111111111111")
	require.NoError(t, repo.Create(ctx, u))

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
	assert.Equal(t, u.WalletAddress, byID.WalletAddress)

	byEmail, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, ctx := setupUserRepo(t)

	u := newUser(t, "alice@example.com", "")
	require.NoError(t, repo.Create(ctx, u))

	dup := newUser(t, "alice@example.com", "")
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, user.ErrUserAlreadyExists)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, ctx := setupUserRepo(t)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserRepository_ListWithWallet(t *testing.T) {
	repo, ctx := setupUserRepo(t)

	withWallet := newUser(t, "alice@example.com", "0x1111111111111111111111111111111111111111")
	withWallet.CreatedAt = time.Now().UTC().Add(-time.Hour)
	withoutWallet := newUser(t, "bob@example.com", "")
	later := newUser(t, "carol@example.com", "0x2222222222222222222222222222222222222222")

	for _, u := range []*user.User{later, withWallet, withoutWallet} {
		require.NoError(t, repo.Create(ctx, u))
	}

	listed, err := repo.ListWithWallet(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// Oldest first, wallet-less accounts excluded
	assert.Equal(t, withWallet.ID, listed[0].ID)
	assert.Equal(t, later.ID, listed[1].ID)
}

func TestUserRepository_Update(t *testing.T) {
	repo, ctx := setupUserRepo(t)

	u := newUser(t, "alice@example.com", "")
	require.NoError(t, repo.Create(ctx, u))

	u.WalletAddress = "0x3333333333333333333333333333333333333333"
	u.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.WalletAddress, got.WalletAddress)

	listed, err := repo.ListWithWallet(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
