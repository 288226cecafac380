package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/timelens/timelens/internal/identity/domain"
)

// SQLiteLinkedAccountRepository implements LinkedAccountRepository using SQLite.
type SQLiteLinkedAccountRepository struct {
	db *sql.DB
}

// NewSQLiteLinkedAccountRepository creates a new SQLite linked account repository.
func NewSQLiteLinkedAccountRepository(db *sql.DB) *SQLiteLinkedAccountRepository {
	return &SQLiteLinkedAccountRepository{db: db}
}

// Save persists a linked account (create or update).
func (r *SQLiteLinkedAccountRepository) Save(ctx context.Context, account *domain.LinkedAccount) error {
	query := `
		INSERT INTO linked_accounts (
			id, user_id, google_email, access_token, refresh_token,
			token_expires_at, is_primary, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ID().String(),
		account.UserID().String(),
		account.GoogleEmail(),
		account.AccessToken(),
		account.RefreshToken(),
		account.TokenExpiresAt().Format(time.RFC3339),
		boolToInt(account.IsPrimary()),
		account.CreatedAt().Format(time.RFC3339),
	)
	return err
}

// FindByID finds a linked account by ID.
func (r *SQLiteLinkedAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.LinkedAccount, error) {
	query := `
		SELECT id, user_id, google_email, access_token, refresh_token,
		       token_expires_at, is_primary, created_at
		FROM linked_accounts
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id.String())
	return scanAccount(row)
}

// FindByUser finds all linked accounts for a user, primary first.
func (r *SQLiteLinkedAccountRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LinkedAccount, error) {
	query := `
		SELECT id, user_id, google_email, access_token, refresh_token,
		       token_expires_at, is_primary, created_at
		FROM linked_accounts
		WHERE user_id = ?
		ORDER BY is_primary DESC, google_email
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// FindByUserAndEmail finds the linked account with the given Google email.
func (r *SQLiteLinkedAccountRepository) FindByUserAndEmail(ctx context.Context, userID uuid.UUID, googleEmail string) (*domain.LinkedAccount, error) {
	query := `
		SELECT id, user_id, google_email, access_token, refresh_token,
		       token_expires_at, is_primary, created_at
		FROM linked_accounts
		WHERE user_id = ? AND google_email = ?
	`

	row := r.db.QueryRowContext(ctx, query, userID.String(), googleEmail)
	return scanAccount(row)
}

// FindPrimaryForUser finds the user's primary linked account.
func (r *SQLiteLinkedAccountRepository) FindPrimaryForUser(ctx context.Context, userID uuid.UUID) (*domain.LinkedAccount, error) {
	query := `
		SELECT id, user_id, google_email, access_token, refresh_token,
		       token_expires_at, is_primary, created_at
		FROM linked_accounts
		WHERE user_id = ? AND is_primary = 1
	`

	row := r.db.QueryRowContext(ctx, query, userID.String())
	return scanAccount(row)
}

// Delete removes a linked account.
func (r *SQLiteLinkedAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM linked_accounts WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id.String())
	return err
}

func scanAccount(row *sql.Row) (*domain.LinkedAccount, error) {
	var (
		idStr        string
		userIDStr    string
		googleEmail  string
		accessToken  string
		refreshToken string
		expiresAtStr string
		isPrimary    int
		createdAtStr string
	)

	err := row.Scan(
		&idStr, &userIDStr, &googleEmail, &accessToken, &refreshToken,
		&expiresAtStr, &isPrimary, &createdAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return buildAccount(idStr, userIDStr, googleEmail, accessToken, refreshToken, expiresAtStr, isPrimary, createdAtStr)
}

func scanAccounts(rows *sql.Rows) ([]*domain.LinkedAccount, error) {
	var accounts []*domain.LinkedAccount

	for rows.Next() {
		var (
			idStr        string
			userIDStr    string
			googleEmail  string
			accessToken  string
			refreshToken string
			expiresAtStr string
			isPrimary    int
			createdAtStr string
		)

		err := rows.Scan(
			&idStr, &userIDStr, &googleEmail, &accessToken, &refreshToken,
			&expiresAtStr, &isPrimary, &createdAtStr,
		)
		if err != nil {
			return nil, err
		}

		account, err := buildAccount(idStr, userIDStr, googleEmail, accessToken, refreshToken, expiresAtStr, isPrimary, createdAtStr)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func buildAccount(idStr, userIDStr, googleEmail, accessToken, refreshToken, expiresAtStr string, isPrimary int, createdAtStr string) (*domain.LinkedAccount, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateLinkedAccount(
		id, userID, googleEmail, accessToken, refreshToken,
		expiresAt, intToBool(isPrimary), createdAt,
	), nil
}
