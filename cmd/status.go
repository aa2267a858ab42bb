package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hosamdev/wassist/internal/config"
	"github.com/hosamdev/wassist/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wassist configuration status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("🤖 wassist Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", cfg.Path())
	fmt.Printf("Model: %s\n", cfg.Str("ollama_model_name", ""))
	fmt.Printf("Ollama: %s\n", cfg.Str("ollama_api_base_url", ""))
	if cfg.Bool("ai_is_active", true) {
		fmt.Println("Reactive AI: ACTIVE")
	} else {
		fmt.Println("Reactive AI: INACTIVE")
	}

	fmt.Println("\nChannels:")
	if cfg.Bool("telegram_settings.enabled", false) {
		fmt.Println("  Telegram: ✓")
	}
	if cfg.Bool("whatsapp_settings.enabled", false) {
		fmt.Printf("  WhatsApp: ✓ (bridge %s)\n", cfg.Str("whatsapp_settings.bridge_url", ""))
	}

	fmt.Println("\nAdmins:")
	for _, platform := range []string{"whatsapp", "telegram"} {
		if id := cfg.AdminID(platform); id != "" {
			fmt.Printf("  %s: %s\n", platform, id)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	provider := providers.NewOllamaProvider(cfg, 5*time.Second)
	if models, err := provider.ListModels(ctx); err != nil {
		fmt.Printf("\nOllama unreachable: %v\n", err)
	} else {
		fmt.Printf("\nOllama models available: %d\n", len(models))
	}

	return nil
}
