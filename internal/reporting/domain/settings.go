package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSendDay  = errors.New("send day must be between 0 and 6")
	ErrInvalidSendHour = errors.New("send hour must be between 0 and 23")
	ErrInvalidTimezone = errors.New("unknown timezone")
)

// DefaultTimezone applies to users who never changed their settings.
const DefaultTimezone = "Asia/Tokyo"

// ReportSettings controls when the weekly report email is sent.
// SendDay follows time.Weekday numbering, Sunday is 0.
type ReportSettings struct {
	id        uuid.UUID
	userID    uuid.UUID
	enabled   bool
	sendDay   int
	sendHour  int
	timezone  string
	createdAt time.Time
}

// NewDefaultReportSettings creates the settings a new user starts with:
// enabled, Sunday at midnight, Asia/Tokyo.
func NewDefaultReportSettings(userID uuid.UUID) *ReportSettings {
	return &ReportSettings{
		id:        uuid.New(),
		userID:    userID,
		enabled:   true,
		sendDay:   0,
		sendHour:  0,
		timezone:  DefaultTimezone,
		createdAt: time.Now().UTC(),
	}
}

// RehydrateReportSettings reconstructs settings from persisted state.
func RehydrateReportSettings(id, userID uuid.UUID, enabled bool, sendDay, sendHour int, timezone string, createdAt time.Time) *ReportSettings {
	return &ReportSettings{
		id:        id,
		userID:    userID,
		enabled:   enabled,
		sendDay:   sendDay,
		sendHour:  sendHour,
		timezone:  timezone,
		createdAt: createdAt,
	}
}

// Getters
func (s *ReportSettings) ID() uuid.UUID        { return s.id }
func (s *ReportSettings) UserID() uuid.UUID    { return s.userID }
func (s *ReportSettings) Enabled() bool        { return s.enabled }
func (s *ReportSettings) SendDay() int         { return s.sendDay }
func (s *ReportSettings) SendHour() int        { return s.sendHour }
func (s *ReportSettings) Timezone() string     { return s.timezone }
func (s *ReportSettings) CreatedAt() time.Time { return s.createdAt }

// SettingsUpdate carries the optional fields of a settings update.
// Nil fields are left unchanged.
type SettingsUpdate struct {
	Enabled  *bool
	SendDay  *int
	SendHour *int
	Timezone *string
}

// Apply validates and applies a partial update.
func (s *ReportSettings) Apply(update SettingsUpdate) error {
	if update.SendDay != nil && (*update.SendDay < 0 || *update.SendDay > 6) {
		return ErrInvalidSendDay
	}
	if update.SendHour != nil && (*update.SendHour < 0 || *update.SendHour > 23) {
		return ErrInvalidSendHour
	}
	if update.Timezone != nil {
		if _, err := time.LoadLocation(*update.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}

	if update.Enabled != nil {
		s.enabled = *update.Enabled
	}
	if update.SendDay != nil {
		s.sendDay = *update.SendDay
	}
	if update.SendHour != nil {
		s.sendHour = *update.SendHour
	}
	if update.Timezone != nil {
		s.timezone = *update.Timezone
	}
	return nil
}
