package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/botx-relay/internal/keychain"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BOTXRELAY_*). A .env file next to the
// config file is loaded into the environment first; variables already set
// in the process environment win over it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	// Overlay environment variables: BOTXRELAY_BOTX__BASE_URL -> botx.base_url, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Protected paths follow a relocated base path unless set explicitly.
	if !k.Exists("bot.protected_paths") {
		cfg.Bot.ProtectedPaths = DefaultProtectedPaths(cfg.Server.BasePath)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("accessing %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// ResolveSecrets fills in the bot secret from the system keychain when
// bot.use_keychain is set and no secret was configured directly.
func (c *Config) ResolveSecrets() error {
	if c.Bot.SecretKey != "" || !c.Bot.UseKeychain {
		return nil
	}
	if c.Bot.ID == "" {
		return fmt.Errorf("bot.id is required to look up the keychain secret")
	}
	secret, err := keychain.Get(keychain.BotSecretAccount(c.Bot.ID))
	if err != nil {
		return fmt.Errorf("resolving bot secret: %w", err)
	}
	c.Bot.SecretKey = secret
	return nil
}

// validLogFormats is the set of recognized log.format values.
var validLogFormats = map[LogFormat]bool{
	LogFormatJSON:    true,
	LogFormatConsole: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path %q must start with /", c.Server.BasePath)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be positive")
	}

	if c.Bot.ID == "" {
		return fmt.Errorf("bot.id is required")
	}
	if c.Bot.SecretKey == "" {
		return fmt.Errorf("bot.secret_key is required (or set bot.use_keychain)")
	}
	if c.Bot.ExpectedIssuer == "" {
		return fmt.Errorf("bot.expected_issuer is required")
	}
	if len(c.Bot.ProtectedPaths) == 0 {
		return fmt.Errorf("bot.protected_paths must not be empty")
	}
	if c.Bot.ClockSkewSeconds < 0 || c.Bot.ClockSkewSeconds > MaxClockSkewSeconds {
		return fmt.Errorf("bot.clock_skew_seconds must be between 0 and %d", MaxClockSkewSeconds)
	}

	if err := validateBaseURL("botx.base_url", c.BotX.BaseURL); err != nil {
		return err
	}
	if c.BotX.TimeoutSeconds <= 0 {
		return fmt.Errorf("botx.timeout_seconds must be positive")
	}
	if c.BotX.TokenLifetimeMinutes <= 0 {
		return fmt.Errorf("botx.token_lifetime_minutes must be positive")
	}

	if err := validateBaseURL("backend.base_url", c.Backend.BaseURL); err != nil {
		return err
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("backend.timeout_seconds must be positive")
	}
	if c.Backend.ChatCreatedPath == "" || c.Backend.AuthCallbackPath == "" {
		return fmt.Errorf("backend.chat_created_path and backend.auth_callback_path are required")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be one of json, console", c.Log.Format)
	}

	return nil
}

func validateBaseURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", field, raw)
	}
	return nil
}
