package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// SQLiteAssignmentRepository implements AssignmentRepository using SQLite.
type SQLiteAssignmentRepository struct {
	db *sql.DB
}

// NewSQLiteAssignmentRepository creates a new SQLite assignment repository.
func NewSQLiteAssignmentRepository(db *sql.DB) *SQLiteAssignmentRepository {
	return &SQLiteAssignmentRepository{db: db}
}

// UpsertAutomatic inserts or updates an assignment. The conflict guard
// keeps manual assignments from being overwritten by the pipeline.
func (r *SQLiteAssignmentRepository) UpsertAutomatic(ctx context.Context, assignment domain.Assignment) error {
	query := `
		INSERT INTO event_categories (id, user_id, event_id, category_id, is_manual, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (user_id, event_id) DO UPDATE SET
			category_id = excluded.category_id
		WHERE is_manual = 0
	`

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID.String(),
		assignment.UserID.String(),
		assignment.EventID,
		assignment.CategoryID.String(),
		assignment.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// UpsertManual inserts or updates an assignment, marking it manual.
func (r *SQLiteAssignmentRepository) UpsertManual(ctx context.Context, assignment domain.Assignment) error {
	query := `
		INSERT INTO event_categories (id, user_id, event_id, category_id, is_manual, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (user_id, event_id) DO UPDATE SET
			category_id = excluded.category_id,
			is_manual = 1
	`

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID.String(),
		assignment.UserID.String(),
		assignment.EventID,
		assignment.CategoryID.String(),
		assignment.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// FindByUser returns all of a user's assignments.
func (r *SQLiteAssignmentRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Assignment, error) {
	query := `
		SELECT id, user_id, event_id, category_id, is_manual, created_at
		FROM event_categories
		WHERE user_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// FindManualByUserAndEvents returns the manual assignments among the
// given event IDs.
func (r *SQLiteAssignmentRepository) FindManualByUserAndEvents(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]domain.Assignment, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(eventIDs)-1) + "?"
	query := `
		SELECT id, user_id, event_id, category_id, is_manual, created_at
		FROM event_categories
		WHERE user_id = ? AND is_manual = 1 AND event_id IN (` + placeholders + `)`

	args := make([]any, 0, len(eventIDs)+1)
	args = append(args, userID.String())
	for _, id := range eventIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func scanAssignments(rows *sql.Rows) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	for rows.Next() {
		var (
			idStr         string
			userIDStr     string
			eventID       string
			categoryIDStr string
			isManual      int
			createdAtStr  string
		)
		if err := rows.Scan(&idStr, &userIDStr, &eventID, &categoryIDStr, &isManual, &createdAtStr); err != nil {
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
		categoryID, err := uuid.Parse(categoryIDStr)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, err
		}

		assignments = append(assignments, domain.Assignment{
			ID:         id,
			UserID:     userID,
			EventID:    eventID,
			CategoryID: categoryID,
			IsManual:   intToBool(isManual),
			CreatedAt:  createdAt,
		})
	}
	return assignments, rows.Err()
}
