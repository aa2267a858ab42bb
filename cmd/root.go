package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wassist",
	Short: "wassist — AI auto-reply assistant for WhatsApp and Telegram",
	Long: "wassist answers incoming chats with an Ollama-backed assistant, runs\n" +
		"admin-approved outreach conversations, and is controlled entirely\n" +
		"through chat commands from the configured admin.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	godotenv.Load()
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default ~/.wassist/config.json)")
}
