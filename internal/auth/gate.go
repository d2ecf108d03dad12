// Package auth guards inbound webhook routes: platform pushes carry an
// HS256 JWT signed with the bot secret, and the endpoints the backend
// calls can be locked behind an API key.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/botx-relay/internal/metrics"
)

var (
	// ErrMissingCredential is returned when no bearer token is present.
	ErrMissingCredential = errors.New("missing authorization header")
	// ErrInvalidCredential is returned when the bearer token fails verification.
	ErrInvalidCredential = errors.New("invalid JWT token")
)

// DefaultClockSkew is the leeway applied to exp, nbf and iat.
const DefaultClockSkew = time.Minute

// GateConfig configures a Gate.
type GateConfig struct {
	// Secret is the bot secret key the platform signs tokens with.
	Secret string
	// Issuer is the expected iss claim.
	Issuer string
	// Audience is the bot id that must appear in aud.
	Audience string
	// ProtectedPaths are doublestar patterns matched case-insensitively
	// against the request path. Unmatched paths pass through.
	ProtectedPaths []string
	ClockSkew      time.Duration
}

// Gate verifies platform JWTs on protected routes.
type Gate struct {
	cfg      GateConfig
	patterns []string
	parser   *jwt.Parser
	logger   zerolog.Logger
	now      func() time.Time
}

// NewGate creates a gate. Patterns that doublestar cannot parse are
// rejected here rather than silently never matching.
func NewGate(cfg GateConfig, logger zerolog.Logger) (*Gate, error) {
	if cfg.ClockSkew < 0 {
		cfg.ClockSkew = DefaultClockSkew
	}
	patterns := make([]string, 0, len(cfg.ProtectedPaths))
	for _, p := range cfg.ProtectedPaths {
		p = normalizePath(p)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid protected path pattern %q", p)
		}
		patterns = append(patterns, p)
	}

	g := &Gate{
		cfg:      cfg,
		patterns: patterns,
		logger:   logger.With().Str("component", "auth_gate").Logger(),
		now:      time.Now,
	}
	g.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithTimeFunc(func() time.Time { return g.now() }),
	)
	return g, nil
}

// WithClock replaces the time source (for testing).
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Protects reports whether requests to path must carry a valid JWT.
func (g *Gate) Protects(path string) bool {
	path = normalizePath(path)
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// Authenticate verifies the bearer token on r and returns the identity it
// asserts.
func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, ErrMissingCredential
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := g.parser.ParseWithClaims(raw, claims, g.key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	id := &Identity{
		Issuer:   claims.Issuer,
		Subject:  claims.Subject,
		Audience: []string(claims.Audience),
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

func (g *Gate) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return []byte(g.cfg.Secret), nil
}

// bearerToken extracts the credential from "Bearer <token>". The scheme
// is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Middleware rejects requests to protected paths that lack a valid JWT
// and stores the verified identity in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Protects(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		id, err := g.Authenticate(r)
		if err != nil {
			reason := "invalid"
			message := ErrInvalidCredential.Error()
			if errors.Is(err, ErrMissingCredential) {
				reason = "missing"
				message = ErrMissingCredential.Error()
			}
			metrics.AuthRejections.WithLabelValues(reason).Inc()
			g.logger.Warn().Err(err).Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("rejected inbound request")
			Unauthorized(w, message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
