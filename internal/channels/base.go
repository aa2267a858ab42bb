// Package channels defines the Channel interface for chat platform
// integrations and the shared inbound publishing logic.
package channels

import (
	"context"
	"strings"
	"time"

	"github.com/hosamdev/wassist/internal/bus"
)

// Channel is the interface all chat platform integrations implement.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram", "whatsapp").
	Name() string

	// Start connects to the platform and begins listening. Blocks until
	// ctx is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error

	// Send delivers an outbound message through this channel.
	Send(msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is active.
	IsRunning() bool
}

// ActionHandler is implemented by channels that understand platform
// action tokens carried on outbound messages.
type ActionHandler interface {
	HandleAction(action string) error
}

// BaseChannel provides shared logic for all channel implementations.
type BaseChannel struct {
	ChannelName string
	Bus         *bus.MessageBus
	Running     bool
}

// HandleMessage publishes an inbound message to the bus. Messages sent
// by the bot's own account and empty bodies are dropped at this
// boundary so the core never debounces them.
func (b *BaseChannel) HandleMessage(chatID, senderName, content string, fromSelf bool) {
	if fromSelf || strings.TrimSpace(content) == "" {
		return
	}
	b.Bus.PublishInbound(bus.InboundMessage{
		Channel:    b.ChannelName,
		ChatID:     chatID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  time.Now(),
		FromSelf:   fromSelf,
	})
}
