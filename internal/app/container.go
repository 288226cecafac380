// Package app wires the application together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/timelens/timelens/adapter/api"
	calendarApp "github.com/timelens/timelens/internal/calendar/application"
	googleCalendar "github.com/timelens/timelens/internal/calendar/infrastructure/google"
	calendarPersistence "github.com/timelens/timelens/internal/calendar/infrastructure/persistence"
	categorizationApp "github.com/timelens/timelens/internal/categorization/application"
	"github.com/timelens/timelens/internal/categorization/infrastructure/ai"
	categorizationPersistence "github.com/timelens/timelens/internal/categorization/infrastructure/persistence"
	identityOAuth "github.com/timelens/timelens/internal/identity/application/oauth"
	identitySession "github.com/timelens/timelens/internal/identity/application/session"
	identityPersistence "github.com/timelens/timelens/internal/identity/infrastructure/persistence"
	reportingApp "github.com/timelens/timelens/internal/reporting/application"
	"github.com/timelens/timelens/internal/reporting/infrastructure/email"
	reportingPersistence "github.com/timelens/timelens/internal/reporting/infrastructure/persistence"
	"github.com/timelens/timelens/internal/reporting/infrastructure/render"
	sharedCrypto "github.com/timelens/timelens/internal/shared/infrastructure/crypto"
	"github.com/timelens/timelens/internal/shared/infrastructure/migrations"
	"github.com/timelens/timelens/pkg/config"
	"github.com/timelens/timelens/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	DB          *sql.DB
	RedisClient *redis.Client

	Sessions *identitySession.Store
	OAuth    *identityOAuth.Service

	Calendars *calendarApp.Service
	Fetcher   *calendarApp.Fetcher

	Categorization *categorizationApp.Service

	Aggregator *reportingApp.Aggregator
	Settings   *reportingApp.SettingsService
	Scheduler  *reportingApp.Scheduler

	Server *api.Server
}

// NewContainer builds the full dependency graph.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = observability.LoggerFromEnv()
	}

	c := &Container{Config: cfg, Logger: logger}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.DB = db
	if err := migrations.RunSQLite(ctx, db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c.RedisClient = redis.NewClient(redisOpts)
	if err := c.RedisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	encrypter, err := sharedCrypto.NewAESGCMFromBase64Key(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create encrypter: %w", err)
	}

	// Identity
	userRepo := identityPersistence.NewSQLiteUserRepository(db)
	accountRepo := identityPersistence.NewSQLiteLinkedAccountRepository(db)

	c.Sessions = identitySession.NewStore(c.RedisClient, cfg.SessionTTL)
	c.OAuth, err = identityOAuth.NewService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.APIURL+"/api/auth/callback",
		userRepo,
		accountRepo,
		encrypter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("create oauth service: %w", err)
	}

	// Calendar
	calendarRepo := calendarPersistence.NewSQLiteSelectedCalendarRepository(db)
	googleClient := googleCalendar.NewClient(logger)
	c.Calendars = calendarApp.NewService(calendarRepo, googleClient, logger)
	c.Fetcher = calendarApp.NewFetcher(calendarRepo, accountRepo, c.OAuth, googleClient, logger)

	// Categorization
	openaiClient, err := ai.NewClient(ai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	c.Categorization = categorizationApp.NewService(
		categorizationPersistence.NewSQLiteCategoryRepository(db),
		categorizationPersistence.NewSQLiteRuleRepository(db),
		categorizationPersistence.NewSQLiteAssignmentRepository(db),
		categorizationPersistence.NewSQLiteTitleCacheRepository(db),
		c.Fetcher,
		openaiClient,
		openaiClient,
		logger,
	)

	// Reporting
	settingsRepo := reportingPersistence.NewSQLiteSettingsRepository(db)
	c.Aggregator = reportingApp.NewAggregator(c.Fetcher, c.Categorization, logger)
	c.Settings = reportingApp.NewSettingsService(settingsRepo)

	renderer := render.NewHTMLRenderer()
	var mailer reportingApp.Mailer
	if cfg.MailgunAPIKey != "" {
		mailer, err = email.NewClient(email.Config{
			APIKey: cfg.MailgunAPIKey,
			Domain: cfg.MailgunDomain,
			Sender: cfg.MailgunSender,
		})
		if err != nil {
			return nil, fmt.Errorf("create mailgun client: %w", err)
		}
	} else {
		logger.Warn("mailgun is not configured, report email delivery is disabled")
		mailer = disabledMailer{}
	}
	c.Scheduler = reportingApp.NewScheduler(
		cfg.ReportCheckSpec,
		settingsRepo,
		userRepo,
		c.Aggregator,
		renderer,
		mailer,
		logger,
	)

	// HTTP API
	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.HTTPAddr
	serverCfg.FrontendURL = cfg.FrontendURL

	handlers := api.Handlers{
		Auth: api.NewAuthHandler(
			c.OAuth,
			c.Sessions,
			userRepo,
			c.Calendars,
			c.Settings,
			cfg.FrontendURL,
			cfg.IsProduction(),
			cfg.SessionTTL,
			logger,
		),
		Calendars:  api.NewCalendarHandler(c.Calendars, logger),
		Events:     api.NewEventHandler(c.Fetcher, c.Categorization, logger),
		Categories: api.NewCategoryHandler(c.Categorization, logger),
		Reports:    api.NewReportHandler(c.Aggregator, renderer, c.Scheduler, logger),
		Settings:   api.NewSettingsHandler(c.Settings, logger),
	}
	c.Server = api.NewServer(serverCfg, handlers, c.Sessions, logger)

	return c, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// disabledMailer rejects delivery when Mailgun is not configured.
type disabledMailer struct{}

func (disabledMailer) Send(ctx context.Context, to, subject, html string) error {
	return errors.New("email delivery is not configured")
}
