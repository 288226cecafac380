package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/calendar/domain"
	identitydomain "github.com/timelens/timelens/internal/identity/domain"
)

// TokenProvider returns a usable plaintext access token for an account.
type TokenProvider interface {
	ValidAccessToken(ctx context.Context, account *identitydomain.LinkedAccount) (string, error)
}

// EventLister fetches events from one calendar.
type EventLister interface {
	ListEvents(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]domain.Event, error)
}

// Fetcher aggregates events across all of a user's enabled calendars.
// Accounts are fetched concurrently; a failing account is logged and
// skipped so one revoked token does not blank the whole view.
type Fetcher struct {
	calendars domain.SelectedCalendarRepository
	accounts  identitydomain.LinkedAccountRepository
	tokens    TokenProvider
	client    EventLister
	logger    *slog.Logger
}

// NewFetcher creates an event fetcher.
func NewFetcher(
	calendars domain.SelectedCalendarRepository,
	accounts identitydomain.LinkedAccountRepository,
	tokens TokenProvider,
	client EventLister,
	logger *slog.Logger,
) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		calendars: calendars,
		accounts:  accounts,
		tokens:    tokens,
		client:    client,
		logger:    logger,
	}
}

// FetchRange returns all events in [start, end) from the user's enabled
// calendars, merged and sorted by start time.
func (f *Fetcher) FetchRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Event, error) {
	calendars, err := f.calendars.FindEnabledByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(calendars) == 0 {
		return nil, nil
	}

	accounts, err := f.accounts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accountByID := make(map[uuid.UUID]*identitydomain.LinkedAccount, len(accounts))
	for _, account := range accounts {
		accountByID[account.ID()] = account
	}

	byAccount := make(map[uuid.UUID][]*domain.SelectedCalendar)
	for _, calendar := range calendars {
		byAccount[calendar.LinkedAccountID()] = append(byAccount[calendar.LinkedAccountID()], calendar)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		merged []domain.Event
	)

	for accountID, accountCalendars := range byAccount {
		account, ok := accountByID[accountID]
		if !ok {
			f.logger.Warn("calendar references unknown account", "account_id", accountID)
			continue
		}

		wg.Add(1)
		go func(account *identitydomain.LinkedAccount, accountCalendars []*domain.SelectedCalendar) {
			defer wg.Done()

			events, err := f.fetchAccount(ctx, account, accountCalendars, start, end)
			if err != nil {
				f.logger.Warn("failed to fetch events for account",
					"account_id", account.ID(),
					"google_email", account.GoogleEmail(),
					"error", err,
				)
				return
			}

			mu.Lock()
			merged = append(merged, events...)
			mu.Unlock()
		}(account, accountCalendars)
	}
	wg.Wait()

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged, nil
}

func (f *Fetcher) fetchAccount(ctx context.Context, account *identitydomain.LinkedAccount, calendars []*domain.SelectedCalendar, start, end time.Time) ([]domain.Event, error) {
	accessToken, err := f.tokens.ValidAccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	var events []domain.Event
	for _, calendar := range calendars {
		calendarEvents, err := f.client.ListEvents(ctx, accessToken, calendar.CalendarID(), start, end)
		if err != nil {
			return nil, err
		}
		for i := range calendarEvents {
			calendarEvents[i].CalendarName = calendar.Name()
		}
		events = append(events, calendarEvents...)
	}
	return events, nil
}
