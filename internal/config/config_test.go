package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/ziadkadry99/botx-relay/internal/keychain"
)

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Bot.ID = "8dada2c8-67a6-4434-9dec-570d244e78ee"
	cfg.Bot.SecretKey = "secret"
	cfg.Bot.ExpectedIssuer = "express.example.com"
	cfg.BotX.BaseURL = "https://express.example.com"
	cfg.Backend.BaseURL = "http://backend:5000"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/api" {
		t.Errorf("expected default base_path /api, got %q", cfg.Server.BasePath)
	}
	if cfg.BotX.TokenLifetime().Minutes() != 55 {
		t.Errorf("expected 55 minute token lifetime, got %v", cfg.BotX.TokenLifetime())
	}
	if cfg.Bot.ClockSkew().Seconds() != 60 {
		t.Errorf("expected 60s clock skew, got %v", cfg.Bot.ClockSkew())
	}
	want := []string{"/api/command", "/api/notification/callback"}
	if len(cfg.Bot.ProtectedPaths) != len(want) {
		t.Fatalf("protected paths: got %v, want %v", cfg.Bot.ProtectedPaths, want)
	}
	for i, p := range want {
		if cfg.Bot.ProtectedPaths[i] != p {
			t.Errorf("protected_paths[%d]: got %q, want %q", i, cfg.Bot.ProtectedPaths[i], p)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botxrelay.yml")

	original := validConfig()
	original.Server.Port = 9090
	original.Backend.MessagePath = "/api/express/webhook/message"
	original.Log.Format = LogFormatConsole

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.Bot.ID != original.Bot.ID {
		t.Errorf("bot.id: got %q, want %q", loaded.Bot.ID, original.Bot.ID)
	}
	if loaded.Bot.SecretKey != original.Bot.SecretKey {
		t.Errorf("bot.secret_key did not round-trip")
	}
	if loaded.Backend.MessagePath != original.Backend.MessagePath {
		t.Errorf("backend.message_path: got %q, want %q", loaded.Backend.MessagePath, original.Backend.MessagePath)
	}
	if loaded.Log.Format != LogFormatConsole {
		t.Errorf("log.format: got %q, want console", loaded.Log.Format)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botxrelay.yml")

	if err := validConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("BOTXRELAY_BOT__SECRET_KEY", "from-env")
	t.Setenv("BOTXRELAY_SERVER__PORT", "7070")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Bot.SecretKey != "from-env" {
		t.Errorf("env override failed: got %q, want from-env", loaded.Bot.SecretKey)
	}
	if loaded.Server.Port != 7070 {
		t.Errorf("env override failed: got port %d, want 7070", loaded.Server.Port)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botxrelay.yml")

	envFile := "BOTXRELAY_BACKEND__BASE_URL=http://dotenv-backend:5000\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BOTXRELAY_BACKEND__BASE_URL") })

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Backend.BaseURL != "http://dotenv-backend:5000" {
		t.Errorf("expected backend url from .env, got %q", loaded.Backend.BaseURL)
	}
}

func TestLoadProtectedPathsFollowBasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botxrelay.yml")
	yml := "server:\n  base_path: /hooks\n"
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Bot.ProtectedPaths) != 2 || cfg.Bot.ProtectedPaths[0] != "/hooks/command" {
		t.Errorf("expected protected paths under /hooks, got %v", cfg.Bot.ProtectedPaths)
	}
}

func TestLoadExplicitProtectedPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botxrelay.yml")
	yml := "server:\n  base_path: /hooks\nbot:\n  protected_paths:\n    - /hooks/**\n"
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Bot.ProtectedPaths) != 1 || cfg.Bot.ProtectedPaths[0] != "/hooks/**" {
		t.Errorf("expected explicit protected paths, got %v", cfg.Bot.ProtectedPaths)
	}
}

func TestValidateValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("validConfig should be valid, got: %v", err)
	}
}

func TestValidateDefaultsIncomplete(t *testing.T) {
	if err := DefaultConfig().Validate(); err == nil {
		t.Error("DefaultConfig has no bot identity and should not validate")
	}
}

func TestValidateSkewBounds(t *testing.T) {
	for _, skew := range []int{0, 60, MaxClockSkewSeconds} {
		cfg := validConfig()
		cfg.Bot.ClockSkewSeconds = skew
		if err := cfg.Validate(); err != nil {
			t.Errorf("skew %d: unexpected error: %v", skew, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing bot id", func(c *Config) { c.Bot.ID = "" }},
		{"missing secret", func(c *Config) { c.Bot.SecretKey = "" }},
		{"missing issuer", func(c *Config) { c.Bot.ExpectedIssuer = "" }},
		{"no protected paths", func(c *Config) { c.Bot.ProtectedPaths = nil }},
		{"relative botx url", func(c *Config) { c.BotX.BaseURL = "express.example.com" }},
		{"ftp backend url", func(c *Config) { c.Backend.BaseURL = "ftp://backend" }},
		{"zero botx timeout", func(c *Config) { c.BotX.TimeoutSeconds = 0 }},
		{"zero backend timeout", func(c *Config) { c.Backend.TimeoutSeconds = 0 }},
		{"zero token lifetime", func(c *Config) { c.BotX.TokenLifetimeMinutes = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad base path", func(c *Config) { c.Server.BasePath = "api" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative skew", func(c *Config) { c.Bot.ClockSkewSeconds = -1 }},
		{"hour-long skew", func(c *Config) { c.Bot.ClockSkewSeconds = 3600 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestResolveSecretsFromKeychain(t *testing.T) {
	keyring.MockInit()

	cfg := validConfig()
	cfg.Bot.SecretKey = ""
	cfg.Bot.UseKeychain = true
	if err := keychain.Set(keychain.BotSecretAccount(cfg.Bot.ID), "kc-secret"); err != nil {
		t.Fatal(err)
	}

	if err := cfg.ResolveSecrets(); err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if cfg.Bot.SecretKey != "kc-secret" {
		t.Errorf("expected secret from keychain, got %q", cfg.Bot.SecretKey)
	}
}

func TestResolveSecretsPrefersConfiguredSecret(t *testing.T) {
	keyring.MockInit()

	cfg := validConfig()
	cfg.Bot.UseKeychain = true
	if err := cfg.ResolveSecrets(); err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if cfg.Bot.SecretKey != "secret" {
		t.Errorf("configured secret should win, got %q", cfg.Bot.SecretKey)
	}
}

func TestResolveSecretsMissing(t *testing.T) {
	keyring.MockInit()

	cfg := validConfig()
	cfg.Bot.SecretKey = ""
	cfg.Bot.UseKeychain = true
	if err := cfg.ResolveSecrets(); err == nil {
		t.Error("expected error when keychain has no secret")
	}
}
