package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/ziadkadry99/botx-relay/internal/metrics"
)

// APIKeyHeader carries the key on requests from the backend.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey returns middleware that rejects requests whose X-API-Key
// does not match key. An empty key disables the check.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				metrics.AuthRejections.WithLabelValues("api_key").Inc()
				Unauthorized(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
