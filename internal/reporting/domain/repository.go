package domain

import (
	"context"

	"github.com/google/uuid"
)

// ReportSettingsRepository persists report delivery settings.
type ReportSettingsRepository interface {
	Save(ctx context.Context, settings *ReportSettings) error
	// FindByUser returns nil when the user never saved settings.
	FindByUser(ctx context.Context, userID uuid.UUID) (*ReportSettings, error)
	// FindEnabled returns the settings of every user with delivery
	// turned on.
	FindEnabled(ctx context.Context) ([]*ReportSettings, error)
}
