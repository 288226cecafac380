// Package persistence provides SQLite repositories for the identity context.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/timelens/timelens/internal/identity/domain"
)

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Save persists a user (create or update).
func (r *SQLiteUserRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID().String(),
		user.Email(),
		user.Name(),
		user.CreatedAt().Format(time.RFC3339),
	)
	return err
}

// FindByID finds a user by ID.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id.String())
	return scanUser(row)
}

// FindByEmail finds a user by email.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE email = ?`

	row := r.db.QueryRowContext(ctx, query, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		idStr        string
		email        string
		name         string
		createdAtStr string
	)

	err := row.Scan(&idStr, &email, &name, &createdAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateUser(id, email, name, createdAt), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
