// Package keychain stores the bot secret in the operating system keychain
// so it does not have to live in botxrelay.yml.
package keychain

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "botxrelay"

// ErrNotFound is returned when no secret is stored for the account.
var ErrNotFound = keyring.ErrNotFound

// BotSecretAccount is the keychain account holding the secret of botID.
func BotSecretAccount(botID string) string {
	return "bot-secret:" + botID
}

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	secret, err := keyring.Get(serviceName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("keychain account %q: %w", account, ErrNotFound)
		}
		return "", fmt.Errorf("keychain account %q: %w", account, err)
	}
	return secret, nil
}

// Set stores a secret in the system keychain.
func Set(account, value string) error {
	return keyring.Set(serviceName, account, value)
}
