package config

import "time"

// LogFormat selects the zerolog output encoding.
type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
)

// Config is the top-level botxrelay configuration, corresponding to botxrelay.yml.
type Config struct {
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Bot     BotConfig     `yaml:"bot" koanf:"bot"`
	BotX    BotXConfig    `yaml:"botx" koanf:"botx"`
	Backend BackendConfig `yaml:"backend" koanf:"backend"`
	API     APIConfig     `yaml:"api" koanf:"api"`
	Log     LogConfig     `yaml:"log" koanf:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port                  int    `yaml:"port" koanf:"port"`
	BasePath              string `yaml:"base_path" koanf:"base_path"`
	AllowAllOrigins       bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
}

// BotConfig identifies the bot and holds the shared secret used both for
// the token exchange signature and for verifying inbound JWTs.
type BotConfig struct {
	ID               string   `yaml:"id" koanf:"id"`
	SecretKey        string   `yaml:"secret_key,omitempty" koanf:"secret_key"`
	UseKeychain      bool     `yaml:"use_keychain" koanf:"use_keychain"`
	ExpectedIssuer   string   `yaml:"expected_issuer" koanf:"expected_issuer"`
	ProtectedPaths   []string `yaml:"protected_paths" koanf:"protected_paths"`
	ClockSkewSeconds int      `yaml:"clock_skew_seconds" koanf:"clock_skew_seconds"`
}

// BotXConfig points at the chat platform API.
type BotXConfig struct {
	BaseURL              string `yaml:"base_url" koanf:"base_url"`
	TimeoutSeconds       int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	TokenLifetimeMinutes int    `yaml:"token_lifetime_minutes" koanf:"token_lifetime_minutes"`
}

// BackendConfig points at the downstream authorization backend.
type BackendConfig struct {
	BaseURL          string `yaml:"base_url" koanf:"base_url"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	ChatCreatedPath  string `yaml:"chat_created_path" koanf:"chat_created_path"`
	AuthCallbackPath string `yaml:"auth_callback_path" koanf:"auth_callback_path"`
	MessagePath      string `yaml:"message_path" koanf:"message_path"`
}

// APIConfig protects the endpoints the backend calls to push messages.
// An empty key leaves them open.
type APIConfig struct {
	Key string `yaml:"key,omitempty" koanf:"key"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string    `yaml:"level" koanf:"level"`
	Format LogFormat `yaml:"format" koanf:"format"`
}

// RequestTimeout returns the per-request handler deadline.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// ClockSkew returns the leeway applied to JWT time claims.
func (b BotConfig) ClockSkew() time.Duration {
	return time.Duration(b.ClockSkewSeconds) * time.Second
}

// Timeout returns the HTTP client timeout for platform calls.
func (b BotXConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// TokenLifetime returns how long a fetched bot token is trusted.
func (b BotXConfig) TokenLifetime() time.Duration {
	return time.Duration(b.TokenLifetimeMinutes) * time.Minute
}

// Timeout returns the HTTP client timeout for backend calls.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}
