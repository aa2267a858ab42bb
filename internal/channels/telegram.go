package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hosamdev/wassist/internal/bus"
	"github.com/hosamdev/wassist/internal/config"
)

// TelegramChannel implements the Telegram bot channel using long polling.
type TelegramChannel struct {
	BaseChannel
	Token    string
	cfg      *config.Store
	botUser  string
	client   *http.Client
	cancelFn context.CancelFunc
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(token string, cfg *config.Store, msgBus *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: BaseChannel{
			ChannelName: "telegram",
			Bus:         msgBus,
		},
		Token:  token,
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *TelegramChannel) Name() string    { return "telegram" }
func (t *TelegramChannel) IsRunning() bool { return t.Running }

// Start begins long polling for Telegram updates.
func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.Token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	t.Running = true
	ctx, t.cancelFn = context.WithCancel(ctx)

	info, err := t.apiCall("getMe", nil)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	if result, ok := info["result"].(map[string]any); ok {
		if username, ok := result["username"].(string); ok {
			t.botUser = username
			log.Printf("Telegram bot @%s connected", username)
		}
	}

	offset := 0
	for {
		select {
		case <-ctx.Done():
			t.Running = false
			return nil
		default:
		}

		updates, err := t.apiCall("getUpdates", map[string]any{
			"offset":          offset,
			"timeout":         30,
			"allowed_updates": []string{"message"},
		})
		if err != nil {
			log.Printf("Telegram getUpdates error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		results, _ := updates["result"].([]any)
		for _, u := range results {
			update, ok := u.(map[string]any)
			if !ok {
				continue
			}
			if uid, ok := update["update_id"].(float64); ok {
				offset = int(uid) + 1
			}
			t.processUpdate(update)
		}
	}
}

// Stop stops the Telegram bot.
func (t *TelegramChannel) Stop() error {
	t.Running = false
	if t.cancelFn != nil {
		t.cancelFn()
	}
	return nil
}

// Send sends a plain-text message via Telegram.
func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	_, err := t.apiCall("sendMessage", map[string]any{
		"chat_id": msg.ChatID,
		"text":    msg.Content,
	})
	return err
}

func (t *TelegramChannel) processUpdate(update map[string]any) {
	msg, ok := update["message"].(map[string]any)
	if !ok {
		return
	}
	from, _ := msg["from"].(map[string]any)
	chat, _ := msg["chat"].(map[string]any)
	if from == nil || chat == nil {
		return
	}

	chatID := fmt.Sprintf("%.0f", chat["id"])
	text, _ := msg["text"].(string)
	if text == "" {
		return
	}
	fromSelf := false
	if isBot, ok := from["is_bot"].(bool); ok && isBot {
		fromSelf = true
	}

	t.HandleMessage(chatID, displayName(from), t.ConvertCommand(chatID, text), fromSelf)
}

// ConvertCommand rewrites an admin's Telegram-style "/command args" into
// the configured prefix form so the core stays platform-agnostic.
// Non-admin slash messages pass through as regular text.
func (t *TelegramChannel) ConvertCommand(chatID, text string) string {
	if !strings.HasPrefix(text, "/") || !t.cfg.IsAdmin("telegram", chatID) {
		return text
	}
	prefix := t.cfg.Str("command_prefix", "$")
	converted := prefix + strings.TrimPrefix(text, "/")
	log.Printf("Telegram: converted command %q to %q", text, converted)
	return converted
}

// displayName builds a human-readable sender name from Telegram user
// fields, preferring first+last name over the username.
func displayName(from map[string]any) string {
	first, _ := from["first_name"].(string)
	last, _ := from["last_name"].(string)
	name := strings.TrimSpace(first + " " + last)
	if name != "" {
		return name
	}
	if username, ok := from["username"].(string); ok && username != "" {
		return username
	}
	return fmt.Sprintf("%.0f", from["id"])
}

func (t *TelegramChannel) apiCall(method string, params map[string]any) (map[string]any, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", t.Token, method)
	body, _ := json.Marshal(params)
	req, _ := http.NewRequest("POST", url, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	if ok, exists := result["ok"].(bool); exists && !ok {
		desc, _ := result["description"].(string)
		return result, fmt.Errorf("telegram %s: %s", method, desc)
	}
	return result, nil
}
