package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botx-relay/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize botxrelay configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the platform URL, bot credentials and backend URL, and writes a botxrelay.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s for bot %s\n", cfgFile, cfg.Bot.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
