package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botx-relay/internal/auth"
	"github.com/ziadkadry99/botx-relay/internal/bots"
	"github.com/ziadkadry99/botx-relay/internal/botx"
	"github.com/ziadkadry99/botx-relay/internal/config"
	"github.com/ziadkadry99/botx-relay/internal/relay"
	"github.com/ziadkadry99/botx-relay/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the webhook relay",
	Long:  `Starts the relay: BotX webhooks under the configured base path, the backend push endpoints, and /healthz, /readyz and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		logger := newLogger(cfg.Log)

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			RequestTimeout: cfg.Server.RequestTimeout(),
		}, logger)

		if err := registerRoutes(srv, cfg, logger); err != nil {
			return err
		}

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("graceful shutdown failed")
			}
		}()

		logger.Info().
			Str("version", Version).
			Str("bot_id", cfg.Bot.ID).
			Str("botx", cfg.BotX.BaseURL).
			Str("backend", cfg.Backend.BaseURL).
			Str("base_path", cfg.Server.BasePath).
			Strs("protected_paths", cfg.Bot.ProtectedPaths).
			Msg("botxrelay starting")

		return srv.Start()
	},
}

// registerRoutes wires the platform client, the backend relay and the
// webhook pipeline onto the server.
func registerRoutes(srv *server.Server, cfg *config.Config, logger zerolog.Logger) error {
	// Platform side
	tokens := botx.NewTokenManager(botx.TokenConfig{
		BaseURL:    cfg.BotX.BaseURL,
		BotID:      cfg.Bot.ID,
		SecretKey:  cfg.Bot.SecretKey,
		Lifetime:   cfg.BotX.TokenLifetime(),
		HTTPClient: &http.Client{Timeout: cfg.BotX.Timeout()},
		Logger:     logger,
	})
	platform := botx.NewClient(cfg.BotX.BaseURL, tokens, &http.Client{Timeout: cfg.BotX.Timeout()}, logger)

	// Backend side
	backend := relay.NewClient(cfg.Backend.BaseURL, relay.Paths{
		ChatCreated:  cfg.Backend.ChatCreatedPath,
		AuthCallback: cfg.Backend.AuthCallbackPath,
		Message:      cfg.Backend.MessagePath,
	}, &http.Client{Timeout: cfg.Backend.Timeout()}, logger)

	gate, err := auth.NewGate(auth.GateConfig{
		Secret:         cfg.Bot.SecretKey,
		Issuer:         cfg.Bot.ExpectedIssuer,
		Audience:       cfg.Bot.ID,
		ProtectedPaths: cfg.Bot.ProtectedPaths,
		ClockSkew:      cfg.Bot.ClockSkew(),
	}, logger)
	if err != nil {
		return fmt.Errorf("configuring JWT gate: %w", err)
	}

	gateway := bots.NewGateway(logger)
	bots.NewProcessor(cfg.Bot.ID, platform, backend, logger).Register(gateway)

	webhooks := bots.NewWebhookHandler(gateway, bots.WebhookConfig{
		BotID:     cfg.Bot.ID,
		SecretKey: cfg.Bot.SecretKey,
	}, logger)
	outbound := bots.NewOutboundHandler(platform, logger)

	if cfg.API.Key == "" {
		logger.Warn().Msg("api.key is empty, backend push endpoints are unauthenticated")
	}
	bots.RegisterRoutes(srv.Router(), cfg.Server.BasePath, gate, cfg.API.Key, webhooks, outbound)

	srv.AddCheck("botx", platform.Ping)
	srv.AddCheck("backend", backend.Ping)
	return nil
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
