package channels

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/hosamdev/wassist/internal/bus"
)

// Manager manages all channel instances, routes outbound messages, and
// forwards platform action tokens to the channel that owns them.
type Manager struct {
	Bus      *bus.MessageBus
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewManager creates a channel manager.
func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		Bus:      msgBus,
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the manager.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Get returns a channel by name.
func (m *Manager) Get(name string) Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// EnabledChannels returns the list of registered channel names.
func (m *Manager) EnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// Deliver sends one outbound message through the named channel and
// forwards any action tokens it carries.
func (m *Manager) Deliver(msg bus.OutboundMessage) error {
	ch := m.Get(msg.Channel)
	if ch == nil {
		return fmt.Errorf("no channel registered for %q", msg.Channel)
	}
	if msg.Content != "" {
		if err := ch.Send(msg); err != nil {
			return err
		}
	}
	for _, action := range msg.Actions {
		if err := m.ForwardAction(msg.Channel, action); err != nil {
			log.Printf("[Channels] action %q on %s: %v", action, msg.Channel, err)
		}
	}
	return nil
}

// ForwardAction hands an action token to the channel that owns it.
// WhatsApp actions are always routed to the whatsapp channel regardless
// of which channel the triggering command arrived on.
func (m *Manager) ForwardAction(channelName, action string) error {
	switch action {
	case "close_whatsapp", "restart_whatsapp":
		channelName = "whatsapp"
	}
	ch := m.Get(channelName)
	if ch == nil {
		return fmt.Errorf("no channel registered for %q", channelName)
	}
	handler, ok := ch.(ActionHandler)
	if !ok {
		return fmt.Errorf("channel %q does not handle actions", channelName)
	}
	return handler.HandleAction(action)
}

// StartAll starts all channels concurrently and dispatches outbound
// messages from the bus to the owning channel.
func (m *Manager) StartAll(ctx context.Context) error {
	if len(m.channels) == 0 {
		log.Println("No channels enabled")
		return nil
	}

	for name := range m.channels {
		chName := name
		m.Bus.Subscribe(chName, func(msg bus.OutboundMessage) {
			if err := m.Deliver(msg); err != nil {
				log.Printf("Error sending to %s: %v", chName, err)
			}
		})
	}

	go m.Bus.DispatchOutbound(ctx)

	var wg sync.WaitGroup
	for name, ch := range m.channels {
		wg.Add(1)
		go func(n string, c Channel) {
			defer wg.Done()
			log.Printf("Starting %s channel...", n)
			if err := c.Start(ctx); err != nil {
				log.Printf("Channel %s error: %v", n, err)
			}
		}(name, ch)
	}

	wg.Wait()
	return nil
}

// StopAll stops all channels.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if err := ch.Stop(); err != nil {
			log.Printf("Error stopping %s: %v", name, err)
		}
	}
}

// GetStatus returns the running status of all channels.
func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}
