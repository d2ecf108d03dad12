package config

import "strings"

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = "botxrelay.yml"

// EnvPrefix is the prefix of environment overrides. Nested keys use a
// double underscore: BOTXRELAY_BOT__SECRET_KEY -> bot.secret_key.
const EnvPrefix = "BOTXRELAY_"

// DefaultBasePath is the prefix under which every webhook route is mounted.
const DefaultBasePath = "/api"

// MaxClockSkewSeconds caps the JWT time-claim leeway.
const MaxClockSkewSeconds = 300

// DefaultProtectedPaths returns the routes that require a platform JWT
// for the given base path.
func DefaultProtectedPaths(basePath string) []string {
	basePath = strings.TrimRight(basePath, "/")
	return []string{
		basePath + "/command",
		basePath + "/notification/callback",
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  8080,
			BasePath:              DefaultBasePath,
			AllowAllOrigins:       false,
			RequestTimeoutSeconds: 60,
		},
		Bot: BotConfig{
			ProtectedPaths:   DefaultProtectedPaths(DefaultBasePath),
			ClockSkewSeconds: 60,
		},
		BotX: BotXConfig{
			TimeoutSeconds:       30,
			TokenLifetimeMinutes: 55,
		},
		Backend: BackendConfig{
			TimeoutSeconds:   30,
			ChatCreatedPath:  "/api/express/webhook/chat-created",
			AuthCallbackPath: "/api/express/webhook/auth-callback",
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatJSON,
		},
	}
}
