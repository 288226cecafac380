package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SQLiteTitleCacheRepository implements TitleCacheRepository using SQLite.
type SQLiteTitleCacheRepository struct {
	db *sql.DB
}

// NewSQLiteTitleCacheRepository creates a new SQLite title cache repository.
func NewSQLiteTitleCacheRepository(db *sql.DB) *SQLiteTitleCacheRepository {
	return &SQLiteTitleCacheRepository{db: db}
}

// Put records a title-category pairing; the latest write wins.
func (r *SQLiteTitleCacheRepository) Put(ctx context.Context, userID uuid.UUID, normalizedTitle string, categoryID uuid.UUID) error {
	query := `
		INSERT INTO event_title_cache (id, user_id, normalized_title, category_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, normalized_title) DO UPDATE SET
			category_id = excluded.category_id
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		userID.String(),
		normalizedTitle,
		categoryID.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// FindByUser returns the user's cache as a normalized-title lookup.
func (r *SQLiteTitleCacheRepository) FindByUser(ctx context.Context, userID uuid.UUID) (map[string]uuid.UUID, error) {
	query := `SELECT normalized_title, category_id FROM event_title_cache WHERE user_id = ?`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cache := make(map[string]uuid.UUID)
	for rows.Next() {
		var (
			title         string
			categoryIDStr string
		)
		if err := rows.Scan(&title, &categoryIDStr); err != nil {
			return nil, err
		}
		categoryID, err := uuid.Parse(categoryIDStr)
		if err != nil {
			return nil, err
		}
		cache[title] = categoryID
	}
	return cache, rows.Err()
}
