// Package persistence provides SQLite repositories for the reporting
// context.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/reporting/domain"
)

// SQLiteSettingsRepository implements ReportSettingsRepository using SQLite.
type SQLiteSettingsRepository struct {
	db *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLite settings repository.
func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// Save persists settings (create or update). Each user has one row.
func (r *SQLiteSettingsRepository) Save(ctx context.Context, settings *domain.ReportSettings) error {
	query := `
		INSERT INTO report_settings (id, user_id, is_enabled, send_day, send_hour, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			is_enabled = excluded.is_enabled,
			send_day = excluded.send_day,
			send_hour = excluded.send_hour,
			timezone = excluded.timezone
	`

	_, err := r.db.ExecContext(ctx, query,
		settings.ID().String(),
		settings.UserID().String(),
		boolToInt(settings.Enabled()),
		settings.SendDay(),
		settings.SendHour(),
		settings.Timezone(),
		settings.CreatedAt().Format(time.RFC3339),
	)
	return err
}

// FindByUser returns a user's settings, or nil when none were saved.
func (r *SQLiteSettingsRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.ReportSettings, error) {
	query := `
		SELECT id, user_id, is_enabled, send_day, send_hour, timezone, created_at
		FROM report_settings
		WHERE user_id = ?
	`

	settings, err := scanSettings(r.db.QueryRowContext(ctx, query, userID.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return settings, err
}

// FindEnabled returns the settings of every user with delivery on.
func (r *SQLiteSettingsRepository) FindEnabled(ctx context.Context) ([]*domain.ReportSettings, error) {
	query := `
		SELECT id, user_id, is_enabled, send_day, send_hour, timezone, created_at
		FROM report_settings
		WHERE is_enabled = 1
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []*domain.ReportSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, settings)
	}
	return all, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettings(row rowScanner) (*domain.ReportSettings, error) {
	var (
		idStr        string
		userIDStr    string
		isEnabled    int
		sendDay      int
		sendHour     int
		timezone     string
		createdAtStr string
	)

	if err := row.Scan(&idStr, &userIDStr, &isEnabled, &sendDay, &sendHour, &timezone, &createdAtStr); err != nil {
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

	return domain.RehydrateReportSettings(id, userID, intToBool(isEnabled), sendDay, sendHour, timezone, createdAt), nil
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
