// Package email delivers report emails through the Mailgun API.
package email

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.mailgun.net/v3"

// Config configures the Mailgun client.
type Config struct {
	APIKey  string
	Domain  string
	Sender  string
	BaseURL string
}

// Client sends HTML email through Mailgun.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	domain     string
	sender     string
}

// NewClient creates a Mailgun client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mailgun api key is required")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("mailgun domain is required")
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("mailgun sender is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		domain:     cfg.Domain,
		sender:     cfg.Sender,
	}, nil
}

// Send delivers one HTML email.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	form := url.Values{}
	form.Set("from", c.sender)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("html", html)

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
