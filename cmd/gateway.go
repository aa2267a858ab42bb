package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hosamdev/wassist/internal/admin"
	"github.com/hosamdev/wassist/internal/bus"
	"github.com/hosamdev/wassist/internal/channels"
	"github.com/hosamdev/wassist/internal/chatlog"
	"github.com/hosamdev/wassist/internal/config"
	"github.com/hosamdev/wassist/internal/debounce"
	"github.com/hosamdev/wassist/internal/numlist"
	"github.com/hosamdev/wassist/internal/outreach"
	"github.com/hosamdev/wassist/internal/prompts"
	"github.com/hosamdev/wassist/internal/providers"
	"github.com/hosamdev/wassist/internal/router"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the wassist gateway (channels + reply engine)",
	RunE:  runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	dataDir := filepath.Dir(cfg.Path())

	fmt.Println("🤖 Starting wassist gateway...")

	msgBus := bus.NewMessageBus()

	timeout := time.Duration(cfg.Float("ollama_request_timeout_seconds", 120)) * time.Second
	provider := providers.NewOllamaProvider(cfg, timeout)

	chatLog := chatlog.NewLogger(filepath.Join(dataDir, "chat_logs"), cfg.Int("max_interaction_log_size", 20))

	promptsPath := cfg.Str("outreach_prompts_file_path", "")
	if promptsPath == "" {
		promptsPath = filepath.Join(dataDir, "outreach_prompts.json")
	}
	promptLib := prompts.NewLibrary(promptsPath)
	if err := promptLib.Load(); err != nil {
		return fmt.Errorf("loading outreach prompts: %w", err)
	}

	outreachStore := outreach.NewStore()
	lists := numlist.NewRegistry()

	interpreter := admin.NewInterpreter(admin.Deps{
		Config:   cfg,
		Provider: provider,
		Outreach: outreachStore,
		Prompts:  promptLib,
		Lists:    lists,
		Log:      chatLog,
		Send: func(channel, chatID, text string) error {
			msgBus.PublishOutbound(bus.OutboundMessage{
				Channel: channel,
				ChatID:  chatID,
				Content: text,
			})
			return nil
		},
	})

	engine := router.NewEngine(router.Deps{
		Config:   cfg,
		Provider: provider,
		Outreach: outreachStore,
		Admin:    interpreter,
		Log:      chatLog,
		NotifyAdmin: func(channel, text string) {
			adminID := cfg.AdminID(channel)
			if adminID == "" {
				log.Printf("[Gateway] no admin configured for %s, dropping notification", channel)
				return
			}
			msgBus.PublishOutbound(bus.OutboundMessage{
				Channel: channel,
				ChatID:  adminID,
				Content: text,
			})
		},
	})

	delay := func() time.Duration {
		return time.Duration(cfg.Float("message_aggregation_delay_seconds", 10) * float64(time.Second))
	}
	buffer := debounce.NewBuffer(delay, func(key, senderName, aggregated string) {
		channel, chatID, ok := strings.Cut(key, ":")
		if !ok {
			log.Printf("[Gateway] malformed conversation key %q", key)
			return
		}
		out := engine.Route(context.Background(), channel, chatID, senderName, aggregated)
		if out.Text == "" && len(out.Actions) == 0 {
			return
		}
		msgBus.PublishOutbound(bus.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: out.Text,
			Actions: out.Actions,
		})
	})

	chMgr := channels.NewManager(msgBus)
	if cfg.Bool("telegram_settings.enabled", false) {
		token := cfg.Str("telegram_settings.bot_token", "")
		if token == "" {
			token = os.Getenv("TELEGRAM_BOT_TOKEN")
		}
		if token != "" {
			chMgr.Register(channels.NewTelegramChannel(token, cfg, msgBus))
			log.Println("Telegram channel enabled")
		} else {
			log.Println("Telegram enabled but no bot token configured, skipping")
		}
	}
	if cfg.Bool("whatsapp_settings.enabled", false) {
		chMgr.Register(channels.NewWhatsAppChannel(
			cfg.Str("whatsapp_settings.bridge_url", ""),
			cfg.Str("whatsapp_settings.bridge_token", ""),
			cfg,
			msgBus,
		))
		log.Println("WhatsApp channel enabled")
	}

	if enabled := chMgr.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %v\n", enabled)
	} else {
		fmt.Println("⚠ No channels enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		chMgr.StopAll()
		buffer.Stop()
		cancel()
	}()

	errCh := make(chan error, 2)
	go func() {
		for {
			select {
			case <-ctx.Done():
				errCh <- nil
				return
			case msg := <-msgBus.Inbound:
				buffer.Add(msg.ConversationKey(), msg.SenderName, msg.Content)
			}
		}
	}()
	go func() { errCh <- chMgr.StartAll(ctx) }()

	return <-errCh
}
