package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botx-relay/internal/botx"
)

var showToken bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the bot credentials for a token to check connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tokens := botx.NewTokenManager(botx.TokenConfig{
			BaseURL:    cfg.BotX.BaseURL,
			BotID:      cfg.Bot.ID,
			SecretKey:  cfg.Bot.SecretKey,
			Lifetime:   cfg.BotX.TokenLifetime(),
			HTTPClient: &http.Client{Timeout: cfg.BotX.Timeout()},
			Logger:     newLogger(cfg.Log),
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.BotX.Timeout())
		defer cancel()
		tok, err := tokens.Token(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Token obtained for bot %s, trusted until %s\n", cfg.Bot.ID, tokens.ExpiresAt().Format(time.RFC3339))
		if showToken {
			fmt.Println(tok)
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&showToken, "show", false, "print the token itself")
	rootCmd.AddCommand(tokenCmd)
}
