// Package persistence provides SQLite repositories for the
// categorization context.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// SQLiteCategoryRepository implements CategoryRepository using SQLite.
type SQLiteCategoryRepository struct {
	db *sql.DB
}

// NewSQLiteCategoryRepository creates a new SQLite category repository.
func NewSQLiteCategoryRepository(db *sql.DB) *SQLiteCategoryRepository {
	return &SQLiteCategoryRepository{db: db}
}

// Save persists a category (create or update).
func (r *SQLiteCategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, user_id, name, color, sort_order, is_system, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			sort_order = excluded.sort_order
	`

	_, err := r.db.ExecContext(ctx, query,
		category.ID().String(),
		category.UserID().String(),
		category.Name(),
		category.Color(),
		category.SortOrder(),
		boolToInt(category.IsSystem()),
		category.CreatedAt().Format(time.RFC3339),
	)
	return err
}

// FindByID finds a category by ID.
func (r *SQLiteCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT id, user_id, name, color, sort_order, is_system, created_at
		FROM categories
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id.String())
	category, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return category, err
}

// FindByUser returns the user's categories ordered by sort order.
func (r *SQLiteCategoryRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Category, error) {
	query := `
		SELECT id, user_id, name, color, sort_order, is_system, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY sort_order, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// MaxSortOrder returns the highest sort order among the user's
// categories, or -1 when there are none.
func (r *SQLiteCategoryRepository) MaxSortOrder(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(sort_order), -1) FROM categories WHERE user_id = ?`

	var maxOrder int
	err := r.db.QueryRowContext(ctx, query, userID.String()).Scan(&maxOrder)
	return maxOrder, err
}

// Delete removes a category. Rules and assignments cascade.
func (r *SQLiteCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String())
	return err
}

// DeleteSystemByUser removes all AI-generated categories for a user.
func (r *SQLiteCategoryRepository) DeleteSystemByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE user_id = ? AND is_system = 1`,
		userID.String(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var (
		idStr        string
		userIDStr    string
		name         string
		color        string
		sortOrder    int
		isSystem     int
		createdAtStr string
	)

	if err := row.Scan(&idStr, &userIDStr, &name, &color, &sortOrder, &isSystem, &createdAtStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateCategory(id, userID, name, color, sortOrder, intToBool(isSystem), createdAt), nil
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
