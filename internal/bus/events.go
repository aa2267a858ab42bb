// Package bus provides the async message bus for decoupled channel-core communication.
package bus

import "time"

// InboundMessage is received from a chat channel.
type InboundMessage struct {
	Channel    string    `json:"channel"`
	ChatID     string    `json:"chat_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	FromSelf   bool      `json:"from_self,omitempty"`
}

// ConversationKey returns the unique key identifying this conversation.
func (m *InboundMessage) ConversationKey() string {
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage is sent to a chat channel. Actions carry opaque
// platform-control tokens (e.g. "restart_whatsapp") that only the owning
// channel knows how to execute.
type OutboundMessage struct {
	Channel string   `json:"channel"`
	ChatID  string   `json:"chat_id"`
	Content string   `json:"content"`
	Actions []string `json:"actions,omitempty"`
}
