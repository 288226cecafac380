package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/reporting/domain"
)

// SettingsService reads and updates report delivery settings.
type SettingsService struct {
	settings domain.ReportSettingsRepository
}

// NewSettingsService creates a settings service.
func NewSettingsService(settings domain.ReportSettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// Get returns the user's settings, or the defaults when none were
// ever saved.
func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID) (*domain.ReportSettings, error) {
	settings, err := s.settings.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings == nil {
		settings = domain.NewDefaultReportSettings(userID)
	}
	return settings, nil
}

// Update applies a partial update, creating the row from defaults when
// the user never saved settings.
func (s *SettingsService) Update(ctx context.Context, userID uuid.UUID, update domain.SettingsUpdate) (*domain.ReportSettings, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := settings.Apply(update); err != nil {
		return nil, err
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

// EnsureDefaults persists the default settings for a user who has
// none. Called when a user first signs in.
func (s *SettingsService) EnsureDefaults(ctx context.Context, userID uuid.UUID) error {
	settings, err := s.settings.FindByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings != nil {
		return nil
	}
	return s.settings.Save(ctx, domain.NewDefaultReportSettings(userID))
}
