package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botx-relay/internal/signature"
)

var signCmd = &cobra.Command{
	Use:   "sign [bot-id]",
	Short: "Print the bot signature used for the token exchange",
	Long: `Prints the uppercase hex HMAC-SHA256 of the bot id keyed with the bot
secret. Without an argument the configured bot id is signed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		exitOnError(err)

		botID := cfg.Bot.ID
		if len(args) == 1 {
			botID = args[0]
		}
		fmt.Println(signature.Sign(botID, cfg.Bot.SecretKey))
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
}
