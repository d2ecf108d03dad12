package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	testSecret = "bot-secret"
	testIssuer = "express.example.com"
	testBotID  = "8dada2c8-67a6-4434-9dec-570d244e78ee"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(GateConfig{
		Secret:         testSecret,
		Issuer:         testIssuer,
		Audience:       testBotID,
		ProtectedPaths: []string{"/api/command", "/api/notification/callback"},
		ClockSkew:      DefaultClockSkew,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g.WithClock(func() time.Time { return testNow })
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testBotID},
		IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(testNow.Add(5 * time.Minute)),
	}
}

func mint(t *testing.T, method jwt.SigningMethod, claims jwt.RegisteredClaims, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

// serve runs a request through the gate in front of a handler that records
// the identity it saw.
func serve(g *Gate, path, authHeader string) (*httptest.ResponseRecorder, *Identity) {
	var seen *Identity
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, seen
}

func TestGateAcceptsValidToken(t *testing.T) {
	g := newTestGate(t)
	token := mint(t, jwt.SigningMethodHS256, validClaims(), []byte(testSecret))

	w, id := serve(g, "/api/command", "Bearer "+token)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if id == nil {
		t.Fatal("expected identity in context")
	}
	if !id.HasAudience(testBotID) || id.Issuer != testIssuer {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestGateBearerSchemeCaseInsensitive(t *testing.T) {
	g := newTestGate(t)
	token := mint(t, jwt.SigningMethodHS256, validClaims(), []byte(testSecret))

	w, _ := serve(g, "/api/command", "bearer "+token)
	if w.Code != http.StatusAccepted {
		t.Errorf("expected lower-case scheme to be accepted, got %d", w.Code)
	}
}

func TestGateRejects(t *testing.T) {
	g := newTestGate(t)

	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"another-bot"}

	wrongIss := validClaims()
	wrongIss.Issuer = "evil.example.com"

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(testNow.Add(-2 * time.Minute))

	noExp := validClaims()
	noExp.ExpiresAt = nil

	notYet := validClaims()
	notYet.NotBefore = jwt.NewNumericDate(testNow.Add(5 * time.Minute))

	tests := []struct {
		name   string
		header string
	}{
		{"wrong audience", "Bearer " + mint(t, jwt.SigningMethodHS256, wrongAud, []byte(testSecret))},
		{"wrong issuer", "Bearer " + mint(t, jwt.SigningMethodHS256, wrongIss, []byte(testSecret))},
		{"expired beyond skew", "Bearer " + mint(t, jwt.SigningMethodHS256, expired, []byte(testSecret))},
		{"missing exp", "Bearer " + mint(t, jwt.SigningMethodHS256, noExp, []byte(testSecret))},
		{"not yet valid", "Bearer " + mint(t, jwt.SigningMethodHS256, notYet, []byte(testSecret))},
		{"wrong secret", "Bearer " + mint(t, jwt.SigningMethodHS256, validClaims(), []byte("other"))},
		{"HS512", "Bearer " + mint(t, jwt.SigningMethodHS512, validClaims(), []byte(testSecret))},
		{"alg none", "Bearer " + mint(t, jwt.SigningMethodNone, validClaims(), jwt.UnsafeAllowNoneSignatureType)},
		{"garbage", "Bearer not.a.jwt"},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, id := serve(g, "/api/command", tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
			if id != nil {
				t.Error("handler must not run for a rejected request")
			}
		})
	}
}

func TestGateExpiredWithinSkew(t *testing.T) {
	g := newTestGate(t)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(testNow.Add(-30 * time.Second))

	w, _ := serve(g, "/api/command", "Bearer "+mint(t, jwt.SigningMethodHS256, claims, []byte(testSecret)))
	if w.Code != http.StatusAccepted {
		t.Errorf("expected token within clock skew to pass, got %d", w.Code)
	}
}

func TestGateMissingHeaderBody(t *testing.T) {
	g := newTestGate(t)

	w, _ := serve(g, "/api/notification/callback", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "Unauthorized" {
		t.Errorf("unexpected error field: %q", body["error"])
	}
	if body["message"] != "missing authorization header" {
		t.Errorf("unexpected message: %q", body["message"])
	}
	if body["timestamp"] == "" {
		t.Error("expected timestamp")
	}
}

func TestGateUnprotectedPathPassesThrough(t *testing.T) {
	g := newTestGate(t)
	for _, path := range []string{"/api/status", "/healthz", "/api/commands"} {
		w, _ := serve(g, path, "")
		if w.Code != http.StatusAccepted {
			t.Errorf("%s: expected pass-through, got %d", path, w.Code)
		}
	}
}

func TestGateProtects(t *testing.T) {
	g, err := NewGate(GateConfig{
		ProtectedPaths: []string{"/api/command", "/API/Hooks/**"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/api/command", true},
		{"/API/COMMAND", true},
		{"/api/command/", true},
		{"/api/hooks/a/b", true},
		{"/api/commander", false},
		{"/api/status", false},
	}
	for _, tt := range tests {
		if got := g.Protects(tt.path); got != tt.want {
			t.Errorf("Protects(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNewGateInvalidPattern(t *testing.T) {
	_, err := NewGate(GateConfig{ProtectedPaths: []string{"/api/[command"}}, zerolog.Nop())
	if err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestAuthenticateErrors(t *testing.T) {
	g := newTestGate(t)

	req := httptest.NewRequest(http.MethodPost, "/api/command", nil)
	if _, err := g.Authenticate(req); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer    ")
	if _, err := g.Authenticate(req); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential for empty token, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer abc")
	if _, err := g.Authenticate(req); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestRequireAPIKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RequireAPIKey("k1")(ok)

	req := httptest.NewRequest(http.MethodPost, "/api/send", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	req.Header.Set(APIKeyHeader, "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", w.Code)
	}

	req.Header.Set(APIKeyHeader, "k1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
}

func TestRequireAPIKeyDisabled(t *testing.T) {
	h := RequireAPIKey("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/send", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected open endpoint, got %d", w.Code)
	}
}
