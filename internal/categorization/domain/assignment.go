package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment maps a calendar event to a category for one user. Manual
// assignments take precedence over automatic ones and are never
// overwritten by the pipeline.
type Assignment struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	EventID    string
	CategoryID uuid.UUID
	IsManual   bool
	CreatedAt  time.Time
}

// NewAssignment creates an assignment row.
func NewAssignment(userID uuid.UUID, eventID string, categoryID uuid.UUID, manual bool) Assignment {
	return Assignment{
		ID:         uuid.New(),
		UserID:     userID,
		EventID:    eventID,
		CategoryID: categoryID,
		IsManual:   manual,
		CreatedAt:  time.Now().UTC(),
	}
}
