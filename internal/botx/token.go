package botx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"

	"github.com/ziadkadry99/botx-relay/internal/metrics"
	"github.com/ziadkadry99/botx-relay/internal/signature"
)

// DefaultTokenLifetime is how long a fetched bot token is trusted. BotX
// tokens live for an hour; refreshing early keeps sends from racing expiry.
const DefaultTokenLifetime = 55 * time.Minute

// ErrTokenUnavailable is returned when no valid bot token could be obtained.
var ErrTokenUnavailable = errors.New("botx: bot token unavailable")

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	BaseURL    string
	BotID      string
	SecretKey  string
	Lifetime   time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// TokenManager exchanges the bot credentials for a bearer token and caches
// it. Reads of a valid cached token take no lock. Refreshes are serialized
// by a single-slot semaphore so that a burst of callers on a cold or
// expired cache results in one exchange; callers that waited on a failed
// exchange get that exchange's error instead of starting another one.
type TokenManager struct {
	baseURL  string
	botID    string
	secret   string
	lifetime time.Duration
	client   *http.Client
	logger   zerolog.Logger
	now      func() time.Time

	cached atomic.Pointer[oauth2.Token]
	sem    *semaphore.Weighted

	// attempts counts completed exchanges. lastErr is only touched while
	// holding sem.
	attempts atomic.Uint64
	lastErr  error
}

// NewTokenManager creates a token manager for one bot.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenManager{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		botID:    cfg.BotID,
		secret:   cfg.SecretKey,
		lifetime: lifetime,
		client:   client,
		logger:   cfg.Logger.With().Str("component", "botx_token").Logger(),
		now:      time.Now,
		sem:      semaphore.NewWeighted(1),
	}
}

// WithClock replaces the time source (for testing).
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Token returns a valid bot token, exchanging the bot credentials for a
// new one when the cache is empty or expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok := m.valid(); tok != nil {
		return tok.AccessToken, nil
	}

	seen := m.attempts.Load()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: waiting for refresh: %w", ErrTokenUnavailable, err)
	}
	defer m.sem.Release(1)

	if tok := m.valid(); tok != nil {
		return tok.AccessToken, nil
	}
	// Another caller finished an exchange while we waited and it failed.
	if m.attempts.Load() != seen && m.lastErr != nil {
		return "", m.lastErr
	}

	tok, err := m.fetch(ctx)
	if err != nil {
		metrics.TokenFetches.WithLabelValues("failure").Inc()
		m.logger.Error().Err(err).Str("bot_id", m.botID).Msg("bot token exchange failed")
		// A refresh abandoned by its own caller says nothing about the
		// platform, so waiters retry instead of inheriting it.
		if ctx.Err() == nil {
			m.lastErr = err
			m.attempts.Add(1)
		}
		return "", err
	}

	metrics.TokenFetches.WithLabelValues("success").Inc()
	m.cached.Store(tok)
	m.lastErr = nil
	m.attempts.Add(1)
	m.logger.Debug().Time("expires_at", tok.Expiry).Msg("bot token refreshed")
	return tok.AccessToken, nil
}

// Invalidate drops the cached token if it is still the given value, so
// the next Token call performs a fresh exchange. A newer token stored by a
// concurrent refresh is left alone.
func (m *TokenManager) Invalidate(token string) {
	cur := m.cached.Load()
	if cur != nil && cur.AccessToken == token {
		m.cached.CompareAndSwap(cur, nil)
	}
}

// ExpiresAt returns the expiry of the cached token, or the zero time.
func (m *TokenManager) ExpiresAt() time.Time {
	if tok := m.cached.Load(); tok != nil {
		return tok.Expiry
	}
	return time.Time{}
}

// valid returns the cached token while it is unexpired on m's clock.
// oauth2.Token.Valid reads the wall clock, so expiry is checked here.
func (m *TokenManager) valid() *oauth2.Token {
	tok := m.cached.Load()
	if tok == nil || !m.now().Before(tok.Expiry) {
		return nil
	}
	return tok
}

// tokenResponse is the body of GET /api/v2/botx/bots/{id}/token.
type tokenResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

func (m *TokenManager) fetch(ctx context.Context) (*oauth2.Token, error) {
	q := url.Values{"signature": {signature.Sign(m.botID, m.secret)}}
	endpoint := fmt.Sprintf("%s/api/v2/botx/bots/%s/token?%s", m.baseURL, url.PathEscape(m.botID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating token request: %w", ErrTokenUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token request: %w", ErrTokenUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: token exchange returned HTTP %d: %s", ErrTokenUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %w", ErrTokenUnavailable, err)
	}
	if result.Result == "" {
		return nil, fmt.Errorf("%w: token exchange returned empty token", ErrTokenUnavailable)
	}

	return &oauth2.Token{
		AccessToken: result.Result,
		TokenType:   "Bearer",
		Expiry:      m.now().Add(m.lifetime),
	}, nil
}
