package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is what a verified platform JWT asserts.
type Identity struct {
	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time
}

// HasAudience reports whether aud contains the given value.
func (id *Identity) HasAudience(aud string) bool {
	for _, a := range id.Audience {
		if a == aud {
			return true
		}
	}
	return false
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the verified identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Unauthorized writes the 401 body used for every rejected credential.
func Unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(errorResponse{
		Error:     "Unauthorized",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
