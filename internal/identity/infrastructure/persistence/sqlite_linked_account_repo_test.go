package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/timelens/timelens/internal/identity/domain"
	"github.com/timelens/timelens/internal/shared/infrastructure/migrations"
)

// setupIdentityTestDB creates an in-memory SQLite database with the schema applied.
func setupIdentityTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunSQLite(context.Background(), db))
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(email, "Test User")
	require.NoError(t, err)
	require.NoError(t, NewSQLiteUserRepository(db).Save(context.Background(), user))
	return user
}

func TestSQLiteUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("saves and finds a user by email", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteUserRepository(db)

		user, err := domain.NewUser("alice@example.com", "Alice")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, user))

		found, err := repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, user.ID(), found.ID())
		assert.Equal(t, "Alice", found.Name())
	})

	t.Run("returns nil for unknown user", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteUserRepository(db)

		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestSQLiteLinkedAccountRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("saves and finds accounts for a user", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteLinkedAccountRepository(db)
		user := createTestUser(t, db, "alice@example.com")

		primary, err := domain.NewLinkedAccount(user.ID(), "alice@example.com", "enc-access", "enc-refresh", time.Now().Add(time.Hour).UTC(), true)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, primary))

		secondary, err := domain.NewLinkedAccount(user.ID(), "alice@work.example.com", "enc-access-2", "enc-refresh-2", time.Now().Add(time.Hour).UTC(), false)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, secondary))

		accounts, err := repo.FindByUser(ctx, user.ID())
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.True(t, accounts[0].IsPrimary())
		assert.Equal(t, "alice@example.com", accounts[0].GoogleEmail())
	})

	t.Run("finds the primary account", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteLinkedAccountRepository(db)
		user := createTestUser(t, db, "bob@example.com")

		account, err := domain.NewLinkedAccount(user.ID(), "bob@example.com", "enc-access", "enc-refresh", time.Now().Add(time.Hour).UTC(), true)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindPrimaryForUser(ctx, user.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, account.ID(), found.ID())
	})

	t.Run("updates token material on save", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteLinkedAccountRepository(db)
		user := createTestUser(t, db, "carol@example.com")

		account, err := domain.NewLinkedAccount(user.ID(), "carol@example.com", "enc-access", "enc-refresh", time.Now().Add(time.Hour).UTC(), true)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, account))

		newExpiry := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, account.UpdateTokens("enc-access-new", "", newExpiry))
		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindByID(ctx, account.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "enc-access-new", found.AccessToken())
		assert.Equal(t, "enc-refresh", found.RefreshToken())
		assert.Equal(t, newExpiry, found.TokenExpiresAt())
	})

	t.Run("deletes an account", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteLinkedAccountRepository(db)
		user := createTestUser(t, db, "dave@example.com")

		account, err := domain.NewLinkedAccount(user.ID(), "dave@work.example.com", "enc-access", "enc-refresh", time.Now().Add(time.Hour).UTC(), false)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, account))

		require.NoError(t, repo.Delete(ctx, account.ID()))

		found, err := repo.FindByID(ctx, account.ID())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("finds by user and google email", func(t *testing.T) {
		db := setupIdentityTestDB(t)
		repo := NewSQLiteLinkedAccountRepository(db)
		user := createTestUser(t, db, "erin@example.com")

		account, err := domain.NewLinkedAccount(user.ID(), "erin@work.example.com", "enc-access", "enc-refresh", time.Now().Add(time.Hour).UTC(), false)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindByUserAndEmail(ctx, user.ID(), "erin@work.example.com")
		require.NoError(t, err)
		require.NotNil(t, found)

		missing, err := repo.FindByUserAndEmail(ctx, user.ID(), "other@example.com")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
