package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hosamdev/wassist/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize wassist configuration and data directories",
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
	}

	// Load writes defaults when the file is missing.
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	fmt.Printf("✓ Config at %s\n", cfg.Path())

	dataDir := filepath.Dir(cfg.Path())
	if err := os.MkdirAll(filepath.Join(dataDir, "chat_logs"), 0755); err != nil {
		return fmt.Errorf("creating chat log directory: %w", err)
	}
	fmt.Printf("✓ Chat logs at %s\n", filepath.Join(dataDir, "chat_logs"))

	knowledgePath := cfg.Str("knowledge_file_path", "")
	if knowledgePath == "" {
		knowledgePath = filepath.Join(dataDir, "knowledge.txt")
		cfg.Set("knowledge_file_path", knowledgePath)
		if err := cfg.Persist(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}
	if _, err := os.Stat(knowledgePath); os.IsNotExist(err) {
		os.WriteFile(knowledgePath, []byte(""), 0644)
		fmt.Printf("✓ Knowledge base at %s (empty, fill it in)\n", knowledgePath)
	}

	fmt.Println("\n🤖 wassist is ready!")
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Set admin_ids and telegram_settings.bot_token in %s\n", cfg.Path())
	fmt.Println("  2. Start the WhatsApp bridge (node bridge/index.js)")
	fmt.Println("  3. Run: wassist gateway")

	return nil
}
