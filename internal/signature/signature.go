// Package signature computes the bot signature BotX expects when a bot
// exchanges its credentials for a token.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the HMAC-SHA256 of botID keyed by secret, hex encoded in
// upper case. BotX compares the signature as an upper-case hex string.
func Sign(botID, secret string) string {
	return strings.ToUpper(hex.EncodeToString(mac(botID, secret)))
}

// Verify reports whether sig is the signature of botID under secret.
// Either hex casing is accepted; the comparison is constant time.
func Verify(botID, secret, sig string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil {
		return false
	}
	return hmac.Equal(got, mac(botID, secret))
}

func mac(botID, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(botID))
	return h.Sum(nil)
}
