package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	conn, _ := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{Name: " Ada ", Email: " Ada@Example.com ", PasswordHash: "hash"})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", created.Email)
	require.Equal(t, "Ada", created.Name)
	require.Equal(t, enums.UserRoleUser, created.Role)

	byEmail, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, now))

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLoginAt)
	require.True(t, byID.LastLoginAt.Equal(now))
}

func TestRepositoryRejectsDuplicateEmail(t *testing.T) {
	conn, _ := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Name: "A", Email: "dup@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Name: "B", Email: "DUP@example.com", PasswordHash: "hash"})
	require.Error(t, err)
}

func TestRepositoryUpdatesRequireExistingUser(t *testing.T) {
	conn, _ := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	err := repo.UpdatePasswordHash(ctx, uuid.New(), "hash")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	created, err := repo.Create(ctx, CreateUserDTO{Name: "Lin", Email: "lin@example.com", PasswordHash: "old"})
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "new"))

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "new", reloaded.PasswordHash)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
