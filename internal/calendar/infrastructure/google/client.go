// Package google is a read-only Google Calendar v3 client.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/timelens/timelens/internal/calendar/domain"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// maxEventsPerCalendar caps a single events request.
const maxEventsPerCalendar = 250

// CalendarEntry is an entry from the user's calendar list.
type CalendarEntry struct {
	ID      string
	Name    string
	Primary bool
}

// Client fetches calendar lists and events over the Calendar v3 REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Google Calendar client.
func NewClient(logger *slog.Logger) *Client {
	return NewClientWithBaseURL(logger, defaultBaseURL)
}

// NewClientWithBaseURL creates a Google Calendar client with a custom base URL.
func NewClientWithBaseURL(logger *slog.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// ListCalendars returns the calendars visible to the account.
func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]CalendarEntry, error) {
	listURL := fmt.Sprintf("%s/users/me/calendarList", c.baseURL)

	var payload struct {
		Items []struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
			Primary bool   `json:"primary"`
		} `json:"items"`
	}
	if err := c.get(ctx, listURL, accessToken, &payload); err != nil {
		return nil, err
	}

	entries := make([]CalendarEntry, 0, len(payload.Items))
	for _, item := range payload.Items {
		entries = append(entries, CalendarEntry{
			ID:      item.ID,
			Name:    item.Summary,
			Primary: item.Primary,
		})
	}
	return entries, nil
}

// ListEvents returns single (non-recurring-expanded) events in the range,
// ordered by start time.
func (c *Client) ListEvents(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]domain.Event, error) {
	query := url.Values{}
	query.Set("timeMin", start.UTC().Format(time.RFC3339))
	query.Set("timeMax", end.UTC().Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	query.Set("maxResults", fmt.Sprintf("%d", maxEventsPerCalendar))

	listURL := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(calendarID), query.Encode())

	var payload struct {
		Items []struct {
			ID        string `json:"id"`
			Summary   string `json:"summary"`
			Attendees []struct {
				Email string `json:"email"`
			} `json:"attendees"`
			Start struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := c.get(ctx, listURL, accessToken, &payload); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(payload.Items))
	for _, item := range payload.Items {
		event := domain.Event{
			ID:         item.ID,
			Title:      item.Summary,
			CalendarID: calendarID,
		}
		if event.Title == "" {
			event.Title = domain.UntitledEvent
		}

		for _, att := range item.Attendees {
			if att.Email != "" {
				event.Attendees = append(event.Attendees, att.Email)
			}
		}

		// Timed events carry dateTime, all-day events carry date only.
		if item.Start.DateTime != "" && item.End.DateTime != "" {
			startTime, err := time.Parse(time.RFC3339, item.Start.DateTime)
			if err != nil {
				continue
			}
			endTime, err := time.Parse(time.RFC3339, item.End.DateTime)
			if err != nil {
				continue
			}
			event.Start = startTime
			event.End = endTime
		} else if item.Start.Date != "" && item.End.Date != "" {
			startTime, err := time.Parse("2006-01-02", item.Start.Date)
			if err != nil {
				continue
			}
			endTime, err := time.Parse("2006-01-02", item.End.Date)
			if err != nil {
				continue
			}
			event.Start = startTime
			event.End = endTime
			event.AllDay = true
		} else {
			continue
		}

		events = append(events, event)
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, rawURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("calendar request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
