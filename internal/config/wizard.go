package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/botx-relay/internal/keychain"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path. When the operator
// chooses the keychain, the secret is stored there instead of the file.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to botxrelay! Let's configure your bot.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Platform.
	botxURL, err := (&promptui.Prompt{
		Label:    "BotX API base URL",
		Default:  "https://express.example.com",
		Validate: validateURLInput,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("botx url: %w", err)
	}
	cfg.BotX.BaseURL = strings.TrimRight(botxURL, "/")

	// 2. Bot identity.
	botID, err := (&promptui.Prompt{
		Label:    "Bot ID",
		Validate: requireNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("bot id: %w", err)
	}
	cfg.Bot.ID = strings.TrimSpace(botID)

	secret, err := (&promptui.Prompt{
		Label:    "Bot secret key",
		Mask:     '*',
		Validate: requireNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("bot secret: %w", err)
	}

	issuer, err := (&promptui.Prompt{
		Label:    "Expected JWT issuer (the platform host)",
		Default:  hostOf(cfg.BotX.BaseURL),
		Validate: requireNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}
	cfg.Bot.ExpectedIssuer = issuer

	// 3. Where the secret lives.
	storage := promptui.Select{
		Label: "Store the bot secret in",
		Items: []string{"system keychain", "config file"},
	}
	storageIdx, _, err := storage.Run()
	if err != nil {
		return nil, fmt.Errorf("secret storage: %w", err)
	}
	if storageIdx == 0 {
		if err := keychain.Set(keychain.BotSecretAccount(cfg.Bot.ID), secret); err != nil {
			return nil, fmt.Errorf("storing secret in keychain: %w", err)
		}
		cfg.Bot.UseKeychain = true
	} else {
		cfg.Bot.SecretKey = secret
	}

	// 4. Downstream backend.
	backendURL, err := (&promptui.Prompt{
		Label:    "Authorization backend base URL",
		Default:  "http://localhost:5000",
		Validate: validateURLInput,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	cfg.Backend.BaseURL = strings.TrimRight(backendURL, "/")

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func validateURLInput(s string) error {
	return validateBaseURL("url", strings.TrimSpace(s))
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
