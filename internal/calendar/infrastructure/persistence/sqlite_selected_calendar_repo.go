// Package persistence provides SQLite repositories for the calendar context.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/timelens/timelens/internal/calendar/domain"
)

// SQLiteSelectedCalendarRepository implements SelectedCalendarRepository using SQLite.
type SQLiteSelectedCalendarRepository struct {
	db *sql.DB
}

// NewSQLiteSelectedCalendarRepository creates a new SQLite selected calendar repository.
func NewSQLiteSelectedCalendarRepository(db *sql.DB) *SQLiteSelectedCalendarRepository {
	return &SQLiteSelectedCalendarRepository{db: db}
}

// Save persists a selected calendar. On re-import of an already known
// calendar only the display name is updated, the enabled flag is kept.
func (r *SQLiteSelectedCalendarRepository) Save(ctx context.Context, calendar *domain.SelectedCalendar) error {
	query := `
		INSERT INTO selected_calendars (
			id, linked_account_id, calendar_id, calendar_name, is_enabled, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (linked_account_id, calendar_id) DO UPDATE SET
			calendar_name = excluded.calendar_name
	`

	_, err := r.db.ExecContext(ctx, query,
		calendar.ID().String(),
		calendar.LinkedAccountID().String(),
		calendar.CalendarID(),
		calendar.Name(),
		boolToInt(calendar.IsEnabled()),
		calendar.CreatedAt().Format(time.RFC3339),
	)
	return err
}

// SetEnabled updates the enabled flag for a calendar.
func (r *SQLiteSelectedCalendarRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `UPDATE selected_calendars SET is_enabled = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, boolToInt(enabled), id.String())
	return err
}

// FindByID finds a selected calendar by ID.
func (r *SQLiteSelectedCalendarRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SelectedCalendar, error) {
	query := `
		SELECT id, linked_account_id, calendar_id, calendar_name, is_enabled, created_at
		FROM selected_calendars
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id.String())
	return scanCalendar(row)
}

// FindEnabledByUser finds all enabled calendars across the user's linked accounts.
func (r *SQLiteSelectedCalendarRepository) FindEnabledByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SelectedCalendar, error) {
	query := `
		SELECT sc.id, sc.linked_account_id, sc.calendar_id, sc.calendar_name, sc.is_enabled, sc.created_at
		FROM selected_calendars sc
		JOIN linked_accounts la ON sc.linked_account_id = la.id
		WHERE la.user_id = ? AND sc.is_enabled = 1
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calendars []*domain.SelectedCalendar
	for rows.Next() {
		calendar, err := scanCalendarRow(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, calendar)
	}
	return calendars, rows.Err()
}

// ListByUser lists all of the user's calendars with their account email,
// primary account first.
func (r *SQLiteSelectedCalendarRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CalendarListing, error) {
	query := `
		SELECT sc.id, sc.linked_account_id, sc.calendar_id, sc.calendar_name, sc.is_enabled, sc.created_at,
		       la.google_email
		FROM selected_calendars sc
		JOIN linked_accounts la ON sc.linked_account_id = la.id
		WHERE la.user_id = ?
		ORDER BY la.is_primary DESC, sc.calendar_name
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.CalendarListing
	for rows.Next() {
		var (
			idStr        string
			accountIDStr string
			calendarID   string
			calendarName string
			isEnabled    int
			createdAtStr string
			googleEmail  string
		)
		if err := rows.Scan(&idStr, &accountIDStr, &calendarID, &calendarName, &isEnabled, &createdAtStr, &googleEmail); err != nil {
			return nil, err
		}

		calendar, err := buildCalendar(idStr, accountIDStr, calendarID, calendarName, isEnabled, createdAtStr)
		if err != nil {
			return nil, err
		}
		listings = append(listings, domain.CalendarListing{Calendar: calendar, AccountEmail: googleEmail})
	}
	return listings, rows.Err()
}

// OwnedByUser reports whether a calendar belongs to one of the user's accounts.
func (r *SQLiteSelectedCalendarRepository) OwnedByUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM selected_calendars sc
		JOIN linked_accounts la ON sc.linked_account_id = la.id
		WHERE sc.id = ? AND la.user_id = ?
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, id.String(), userID.String()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanCalendar(row *sql.Row) (*domain.SelectedCalendar, error) {
	var (
		idStr        string
		accountIDStr string
		calendarID   string
		calendarName string
		isEnabled    int
		createdAtStr string
	)

	err := row.Scan(&idStr, &accountIDStr, &calendarID, &calendarName, &isEnabled, &createdAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return buildCalendar(idStr, accountIDStr, calendarID, calendarName, isEnabled, createdAtStr)
}

func scanCalendarRow(rows *sql.Rows) (*domain.SelectedCalendar, error) {
	var (
		idStr        string
		accountIDStr string
		calendarID   string
		calendarName string
		isEnabled    int
		createdAtStr string
	)

	if err := rows.Scan(&idStr, &accountIDStr, &calendarID, &calendarName, &isEnabled, &createdAtStr); err != nil {
		return nil, err
	}

	return buildCalendar(idStr, accountIDStr, calendarID, calendarName, isEnabled, createdAtStr)
}

func buildCalendar(idStr, accountIDStr, calendarID, calendarName string, isEnabled int, createdAtStr string) (*domain.SelectedCalendar, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	accountID, err := uuid.Parse(accountIDStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateSelectedCalendar(id, accountID, calendarID, calendarName, intToBool(isEnabled), createdAt), nil
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
