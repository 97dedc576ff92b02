// Package ntfy posts contact-request notifications to an ntfy topic.
package ntfy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"portfolio-chat/internal/domain"
)

const (
	defaultBaseURL = "https://ntfy.sh"

	// DefaultTopic is used when no topic is configured.
	DefaultTopic = "portfolio-contact-requests"

	requestTimeout = 5 * time.Second
)

// Client sends plain-text webhook notifications. A notification is
// best-effort: failures are logged and absorbed, never surfaced to the
// visitor's request.
type Client struct {
	baseURL    string
	topic      string
	httpClient *http.Client
	log        *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func NewClient(topic string, opts ...Option) *Client {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		topic:      topic,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify posts the contact request to the configured topic and reports
// whether it was accepted. Any network failure or non-2xx status yields
// false. No retries.
func (c *Client) Notify(ctx context.Context, req domain.ContactRequest) bool {
	body := fmt.Sprintf("Name: %s\nPhone: %s\nMessage: %s", req.Name, req.Phone, req.Message)
	endpoint := strings.TrimRight(c.baseURL, "/") + "/" + c.topic

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		c.log.Warn("ntfy: create request failed", "err", err)
		return false
	}
	httpReq.Header.Set("Title", "New portfolio contact request")
	httpReq.Header.Set("Priority", "high")
	httpReq.Header.Set("Tags", "email,phone")

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("ntfy: post failed", "err", err)
		return false
	}
	defer func() { _ = res.Body.Close() }()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Warn("ntfy: unexpected status", "status", res.StatusCode)
		return false
	}
	return true
}
