package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hosamdev/wassist/internal/bus"
	"github.com/hosamdev/wassist/internal/config"
)

// WhatsAppChannel implements the WhatsApp channel via a Node.js bridge
// WebSocket. The bridge owns the browser session; this side speaks a
// small JSON frame protocol with it and reconnects on failure.
type WhatsAppChannel struct {
	BaseChannel
	BridgeURL   string
	BridgeToken string
	cfg         *config.Store

	mu        sync.Mutex
	conn      *websocket.Conn
	suspended bool
	cancelFn  context.CancelFunc
}

// NewWhatsAppChannel creates a WhatsAppChannel.
func NewWhatsAppChannel(bridgeURL, bridgeToken string, cfg *config.Store, msgBus *bus.MessageBus) *WhatsAppChannel {
	if bridgeURL == "" {
		bridgeURL = "ws://localhost:3001"
	}
	return &WhatsAppChannel{
		BaseChannel: BaseChannel{
			ChannelName: "whatsapp",
			Bus:         msgBus,
		},
		BridgeURL:   bridgeURL,
		BridgeToken: bridgeToken,
		cfg:         cfg,
	}
}

func (w *WhatsAppChannel) Name() string    { return "whatsapp" }
func (w *WhatsAppChannel) IsRunning() bool { return w.Running }

// Start connects to the bridge and reads frames until ctx is cancelled.
// Lost connections are retried every 5 seconds unless the channel was
// suspended by a close action.
func (w *WhatsAppChannel) Start(ctx context.Context) error {
	w.Running = true
	ctx, w.cancelFn = context.WithCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Running = false
			return nil
		default:
		}

		if w.isSuspended() {
			time.Sleep(time.Second)
			continue
		}

		if err := w.runConnection(ctx); err != nil {
			log.Printf("WhatsApp bridge connection: %v", err)
		}

		select {
		case <-ctx.Done():
			w.Running = false
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

func (w *WhatsAppChannel) runConnection(ctx context.Context) error {
	header := http.Header{}
	if w.BridgeToken != "" {
		header.Set("Authorization", "Bearer "+w.BridgeToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.BridgeURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.BridgeURL, err)
	}
	log.Printf("WhatsApp bridge connected at %s", w.BridgeURL)

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		if w.conn == conn {
			w.conn = nil
		}
		w.mu.Unlock()
		conn.Close()
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		w.ProcessBridgeFrame(raw)
	}
}

// Stop stops the WhatsApp channel.
func (w *WhatsAppChannel) Stop() error {
	w.Running = false
	if w.cancelFn != nil {
		w.cancelFn()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	return nil
}

// Send sends a message through the bridge.
func (w *WhatsAppChannel) Send(msg bus.OutboundMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}
	return w.conn.WriteJSON(map[string]string{
		"type": "send",
		"to":   msg.ChatID,
		"text": msg.Content,
	})
}

// HandleAction executes a platform action token: close_whatsapp drops
// the bridge connection and suspends reconnecting; restart_whatsapp
// lifts the suspension and forces a fresh connection.
func (w *WhatsAppChannel) HandleAction(action string) error {
	switch action {
	case "close_whatsapp":
		log.Println("WhatsApp: closing bridge connection on admin request")
		w.mu.Lock()
		w.suspended = true
		if w.conn != nil {
			w.conn.WriteJSON(map[string]string{"type": "close"})
			w.conn.Close()
			w.conn = nil
		}
		w.mu.Unlock()
		return nil
	case "restart_whatsapp":
		log.Println("WhatsApp: restarting bridge connection on admin request")
		w.mu.Lock()
		w.suspended = false
		if w.conn != nil {
			w.conn.Close()
			w.conn = nil
		}
		w.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("unknown whatsapp action %q", action)
	}
}

func (w *WhatsAppChannel) isAdminCommand(chatID, body string) bool {
	if w.cfg == nil || !w.cfg.IsAdmin("whatsapp", chatID) {
		return false
	}
	prefix := w.cfg.Str("command_prefix", "$")
	return strings.HasPrefix(strings.TrimSpace(body), prefix)
}

func (w *WhatsAppChannel) isSuspended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.suspended
}

// ProcessBridgeFrame handles one incoming frame from the bridge
// (exported for testing).
func (w *WhatsAppChannel) ProcessBridgeFrame(raw []byte) {
	var data map[string]any
	if json.Unmarshal(raw, &data) != nil {
		return
	}

	msgType, _ := data["type"].(string)
	switch msgType {
	case "message":
		chatID, _ := data["chat"].(string)
		body, _ := data["body"].(string)
		fromMe, _ := data["fromMe"].(bool)
		isGroup, _ := data["isGroup"].(bool)
		kind, _ := data["msgType"].(string)
		name, _ := data["name"].(string)
		if name == "" {
			name = chatID
		}

		// A self-message is accepted only when it is the admin issuing a
		// command in the admin chat; everything else the account sends is
		// an echo of our own replies.
		adminCommand := w.isAdminCommand(chatID, body)
		if fromMe && !adminCommand {
			return
		}
		if isGroup {
			return
		}
		if !strings.Contains(chatID, "@c.us") && !strings.Contains(chatID, "@g.us") {
			return
		}
		if !adminCommand && kind != "" && kind != "chat" {
			log.Printf("WhatsApp: ignoring non-chat message type %q from %s", kind, chatID)
			return
		}
		w.HandleMessage(chatID, name, body, false)

	case "status":
		status, _ := data["status"].(string)
		log.Printf("WhatsApp status: %s", status)

	case "qr":
		log.Println("Scan QR code in bridge terminal to connect WhatsApp")

	case "error":
		errMsg, _ := data["error"].(string)
		log.Printf("WhatsApp bridge error: %s", errMsg)
	}
}
