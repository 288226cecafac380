package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	identitydomain "github.com/timelens/timelens/internal/identity/domain"
	"github.com/timelens/timelens/internal/reporting/domain"
)

// reportWindow is how far back the weekly email looks.
const reportWindow = 7

// ReportBuilder builds a report over a period.
type ReportBuilder interface {
	BuildReport(ctx context.Context, userID uuid.UUID, start, end time.Time) (*domain.Report, error)
}

// Renderer turns a report into an email body.
type Renderer interface {
	Render(report *domain.Report) (string, error)
}

// Mailer delivers an HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// UserDirectory resolves user IDs to their profile.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identitydomain.User, error)
}

// Scheduler sends the weekly report email. It ticks every hour and
// delivers to users whose local send day and hour match.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	settings domain.ReportSettingsRepository
	users    UserDirectory
	reports  ReportBuilder
	renderer Renderer
	mailer   Mailer
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler creates a report scheduler. The spec is a cron
// expression, normally an hourly tick.
func NewScheduler(
	spec string,
	settings domain.ReportSettingsRepository,
	users UserDirectory,
	reports ReportBuilder,
	renderer Renderer,
	mailer Mailer,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		spec:     spec,
		settings: settings,
		users:    users,
		reports:  reports,
		renderer: renderer,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the hourly tick.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunDue(context.Background(), s.now())
	})
	if err != nil {
		return fmt.Errorf("schedule report delivery: %w", err)
	}
	s.cron.Start()
	s.logger.Info("report scheduler started", "spec", s.spec)
	return nil
}

// Stop halts the tick and waits for a running delivery to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunDue delivers the report to every enabled user whose configured
// send day and hour match the given time in their timezone. One user's
// failure never aborts the batch.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) {
	allSettings, err := s.settings.FindEnabled(ctx)
	if err != nil {
		s.logger.Error("loading report settings failed", "error", err)
		return
	}

	for _, settings := range allSettings {
		location, err := time.LoadLocation(settings.Timezone())
		if err != nil {
			s.logger.Warn("skipping user with unknown timezone",
				"user_id", settings.UserID(),
				"timezone", settings.Timezone(),
			)
			continue
		}

		local := now.In(location)
		if int(local.Weekday()) != settings.SendDay() || local.Hour() != settings.SendHour() {
			continue
		}

		if err := s.SendReport(ctx, settings.UserID()); err != nil {
			s.logger.Warn("report delivery failed",
				"user_id", settings.UserID(),
				"error", err,
			)
		}
	}
}

// SendReport builds the trailing-week report and emails it to the user.
func (s *Scheduler) SendReport(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	end := s.now()
	start := end.AddDate(0, 0, -reportWindow)

	report, err := s.reports.BuildReport(ctx, userID, start, end)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	html, err := s.renderer.Render(report)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	subject := fmt.Sprintf("Weekly Time Report (%s 〜 %s)", report.Period.Start, report.Period.End)
	if err := s.mailer.Send(ctx, user.Email(), subject, html); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	s.logger.Info("report delivered", "user_id", userID, "period_start", report.Period.Start)
	return nil
}
