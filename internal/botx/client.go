// Package botx talks to the BotX platform API on behalf of the bot:
// exchanging credentials for a token and pushing messages into chats.
package botx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/botx-relay/internal/metrics"
)

// ErrUnauthorized is returned when the platform rejects the bot token.
var ErrUnauthorized = errors.New("botx: token rejected")

// TokenSource supplies bot tokens. *TokenManager implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(token string)
}

// Client sends messages to chats through the BotX API.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a BotX client. A nil httpClient gets a 30s timeout.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  httpClient,
		logger:  logger.With().Str("component", "botx_client").Logger(),
	}
}

// SendText sends a plain text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.send(ctx, "text", chatID, text, nil)
}

// SendWithButtons sends a message with rows of inline buttons.
func (c *Client) SendWithButtons(ctx context.Context, chatID, text string, rows [][]Button) error {
	return c.send(ctx, "buttons", chatID, text, rows)
}

func (c *Client) send(ctx context.Context, kind, chatID, text string, rows [][]Button) error {
	err := c.post(ctx, chatID, text, rows)
	result := "success"
	if err != nil {
		result = "failure"
		c.logger.Error().Err(err).Str("chat_id", chatID).Str("kind", kind).Msg("sending message failed")
	}
	metrics.MessagesSent.WithLabelValues(kind, result).Inc()
	return err
}

func (c *Client) post(ctx context.Context, chatID, text string, rows [][]Button) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(notificationRequest{
		GroupChatID: chatID,
		Notification: notification{
			Status: "ok",
			Body:   text,
			Bubble: toBubble(rows),
		},
	})
	if err != nil {
		return fmt.Errorf("botx: marshalling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v4/botx/notifications/direct", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("botx: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("botx: sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(token)
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("botx: notification returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Ping checks that the platform answers. Any status below 500 counts as up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("botx: creating ping request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("botx: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("botx: ping returned HTTP %d", resp.StatusCode)
	}
	return nil
}
