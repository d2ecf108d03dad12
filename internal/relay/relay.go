// Package relay forwards classified BotX events to the downstream
// authorization backend.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/botx-relay/internal/metrics"
)

var (
	// ErrStatus is returned when the backend answers with a non-2xx status.
	ErrStatus = errors.New("relay: backend returned non-success status")
	// ErrNotConfigured is returned for an event whose endpoint is not set.
	ErrNotConfigured = errors.New("relay: endpoint not configured")
)

// Paths are the backend endpoints, relative to the base URL.
type Paths struct {
	ChatCreated  string
	AuthCallback string
	// Message is optional; plain messages are not relayed when empty.
	Message string
}

// Client posts events to the backend. Each event is a single attempt.
type Client struct {
	baseURL string
	paths   Paths
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a relay client. A nil httpClient gets a 30s timeout.
func NewClient(baseURL string, paths Paths, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   paths,
		client:  httpClient,
		logger:  logger.With().Str("component", "relay").Logger(),
	}
}

// ChatCreated reports that a user opened the bot chat for an
// authorization request.
func (c *Client) ChatCreated(ctx context.Context, ev ChatCreatedEvent) error {
	return c.post(ctx, "chat_created", c.paths.ChatCreated, ev)
}

// AuthCallback reports the user's allow/deny decision.
func (c *Client) AuthCallback(ctx context.Context, ev AuthCallbackEvent) error {
	return c.post(ctx, "auth_callback", c.paths.AuthCallback, ev)
}

// Message forwards free text typed by the user.
func (c *Client) Message(ctx context.Context, ev MessageEvent) error {
	return c.post(ctx, "message", c.paths.Message, ev)
}

// MessagesEnabled reports whether plain messages are relayed.
func (c *Client) MessagesEnabled() bool {
	return c.paths.Message != ""
}

func (c *Client) post(ctx context.Context, event, path string, payload any) error {
	if path == "" {
		return fmt.Errorf("%w: %s", ErrNotConfigured, event)
	}

	start := time.Now()
	err := c.do(ctx, path, payload)
	metrics.RelayLatency.WithLabelValues(event).Observe(time.Since(start).Seconds())

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.RelayRequests.WithLabelValues(event, result).Inc()

	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Str("path", path).Msg("relay to backend failed")
		return err
	}
	c.logger.Debug().Str("event", event).Dur("latency", time.Since(start)).Msg("relayed to backend")
	return nil
}

func (c *Client) do(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("relay: marshalling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("relay: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d from %s", ErrStatus, resp.StatusCode, path)
	}
	return nil
}

// Ping checks that the backend answers. Any status below 500 counts as up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("relay: creating ping request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("relay: ping returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// requestID propagates the inbound request id, or mints one for events
// that did not originate from an HTTP request.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
