// Package ai implements event classification and category generation
// against the OpenAI chat completions API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/timelens/timelens/internal/categorization/application"
	"github.com/timelens/timelens/internal/categorization/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	classifyTemperature = 0.3
	generateTemperature = 0.7

	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// palette provides colors for generated categories, assigned by index.
var palette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308", "#84cc16", "#22c55e",
	"#10b981", "#14b8a6", "#06b6d4", "#0ea5e9", "#3b82f6", "#6366f1",
	"#8b5cf6", "#a855f7", "#d946ef", "#ec4899", "#f43f5e",
}

// Config configures the OpenAI client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client calls the chat completions API with a circuit breaker and
// bounded retries. It implements both the classifier and the category
// generator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	breaker    *gobreaker.CircuitBreaker[string]
	logger     *slog.Logger
}

// NewClient creates an OpenAI client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}

	client.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return client, nil
}

// ClassifyEvents asks the model to assign each event to one of the
// given categories. Results referencing unknown events or categories
// fail the whole batch.
func (c *Client) ClassifyEvents(ctx context.Context, events []application.EventSummary, categories []*domain.Category, rules []*domain.Rule) ([]application.ClassifiedEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	content, err := c.complete(ctx, classifyTemperature, buildClassifyPrompt(events, categories, rules))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []struct {
			EventID    string `json:"eventId"`
			CategoryID string `json:"categoryId"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}

	validCategories := make(map[uuid.UUID]struct{}, len(categories))
	for _, category := range categories {
		validCategories[category.ID()] = struct{}{}
	}
	requested := make(map[string]struct{}, len(events))
	for _, event := range events {
		requested[event.ID] = struct{}{}
	}

	classified := make([]application.ClassifiedEvent, 0, len(parsed.Results))
	seen := make(map[string]struct{}, len(parsed.Results))
	for _, result := range parsed.Results {
		if _, ok := requested[result.EventID]; !ok {
			return nil, fmt.Errorf("classification references unknown event %q", result.EventID)
		}
		categoryID, err := uuid.Parse(result.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("classification for event %q has invalid category id %q", result.EventID, result.CategoryID)
		}
		if _, ok := validCategories[categoryID]; !ok {
			return nil, fmt.Errorf("classification for event %q references unknown category %s", result.EventID, categoryID)
		}
		if _, ok := seen[result.EventID]; ok {
			continue
		}
		seen[result.EventID] = struct{}{}
		classified = append(classified, application.ClassifiedEvent{EventID: result.EventID, CategoryID: categoryID})
	}

	for _, event := range events {
		if _, ok := seen[event.ID]; !ok {
			return nil, fmt.Errorf("classification is missing event %q", event.ID)
		}
	}
	return classified, nil
}

// GenerateCategories asks the model to propose a category set from a
// sample of events. Colors are assigned from a fixed palette.
func (c *Client) GenerateCategories(ctx context.Context, events []application.EventSummary) ([]application.CategorySuggestion, error) {
	content, err := c.complete(ctx, generateTemperature, buildGeneratePrompt(events))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Categories []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"categories"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse generation response: %w", err)
	}

	suggestions := make([]application.CategorySuggestion, 0, len(parsed.Categories))
	for i, category := range parsed.Categories {
		suggestions = append(suggestions, application.CategorySuggestion{
			Name:        category.Name,
			Description: category.Description,
			Color:       palette[i%len(palette)],
		})
	}
	return suggestions, nil
}

func buildClassifyPrompt(events []application.EventSummary, categories []*domain.Category, rules []*domain.Rule) string {
	categoryNames := make(map[uuid.UUID]string, len(categories))

	var b strings.Builder
	b.WriteString("あなたはカレンダーイベントを分類するアシスタントです。\n")
	b.WriteString("以下のイベントを最も適切なカテゴリに分類してください。\n\n")

	b.WriteString("カテゴリ一覧:\n")
	for _, category := range categories {
		categoryNames[category.ID()] = category.Name()
		fmt.Fprintf(&b, "- %s: %s\n", category.ID(), category.Name())
	}

	if len(rules) > 0 {
		b.WriteString("\n分類ルールの例 (参考にしてください):\n")
		for _, rule := range rules {
			fmt.Fprintf(&b, "- %s: %s → %s → カテゴリID: %s\n",
				rule.Type(), rule.Value(), categoryNames[rule.CategoryID()], rule.CategoryID())
		}
	}

	b.WriteString("\nイベント一覧:\n")
	for _, event := range events {
		fmt.Fprintf(&b, "- %s: \"%s\" (参加者: %d名)\n", event.ID, event.Title, event.AttendeeCount)
	}

	b.WriteString("\n以下のJSON形式で出力してください:\n")
	b.WriteString(`{"results": [{"eventId": "...", "categoryId": "..."}]}`)
	b.WriteString("\nすべてのイベントを必ず分類してください。")
	return b.String()
}

func buildGeneratePrompt(events []application.EventSummary) string {
	var b strings.Builder
	b.WriteString("あなたは時間管理のアシスタントです。\n")
	b.WriteString("以下のカレンダーイベントを分析し、時間の使い方を把握するのに適したカテゴリを5〜10個提案してください。\n\n")

	b.WriteString("イベント一覧:\n")
	for _, event := range events {
		fmt.Fprintf(&b, "- %s (参加者: %d名, カレンダー: %s)\n", event.Title, event.AttendeeCount, event.CalendarName)
	}

	b.WriteString("\n以下のJSON形式で出力してください:\n")
	b.WriteString(`{"categories": [{"name": "...", "description": "..."}]}`)
	return b.String()
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// complete sends one chat completion request through the circuit
// breaker, retrying transient failures with backoff.
func (c *Client) complete(ctx context.Context, temperature float64, prompt string) (string, error) {
	request := chatRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	request.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	return c.breaker.Execute(func() (string, error) {
		var lastErr error
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryBackoff << (attempt - 1)):
				}
			}

			content, retryable, err := c.doRequest(ctx, body)
			if err == nil {
				return content, nil
			}
			lastErr = err
			if !retryable {
				return "", err
			}
			c.logger.Warn("openai request failed, retrying", "attempt", attempt+1, "error", err)
		}
		return "", lastErr
	})
}

func (c *Client) doRequest(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("openai returned no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}
