// Package router classifies each debounced message batch and dispatches
// it: admin command, AI toggle, active outreach continuation, or the
// reactive default. Classification is strict first-match priority.
package router

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hosamdev/wassist/internal/admin"
	"github.com/hosamdev/wassist/internal/chatlog"
	"github.com/hosamdev/wassist/internal/config"
	"github.com/hosamdev/wassist/internal/history"
	"github.com/hosamdev/wassist/internal/outreach"
	"github.com/hosamdev/wassist/internal/prompts"
	"github.com/hosamdev/wassist/internal/providers"
)

// Fallback reply when the model returns nothing usable.
const genericFallback = "لم أتمكن من معالجة طلبك في الوقت الحالي."

// Reply is the routed outcome handed back to the channel layer. An empty
// Text means no message is sent to the conversation.
type Reply struct {
	Text    string
	Actions []string
}

// NotifyFunc delivers a notification to the configured admin on channel.
type NotifyFunc func(channel, text string)

// Deps wires the engine to its collaborators.
type Deps struct {
	Config      *config.Store
	Provider    providers.LLMProvider
	Outreach    *outreach.Store
	Admin       *admin.Interpreter
	Log         *chatlog.Logger
	NotifyAdmin NotifyFunc
}

// Engine routes aggregated batches. It owns the per-conversation
// reactive history rings.
type Engine struct {
	deps Deps

	mu        sync.Mutex
	histories map[string]*history.Ring
}

// NewEngine creates a router engine.
func NewEngine(deps Deps) *Engine {
	return &Engine{
		deps:      deps,
		histories: make(map[string]*history.Ring),
	}
}

// Route classifies one aggregated batch for a conversation and returns
// the reply to deliver. Every path writes the inbound user record and
// exactly one outcome record to the durable log.
func (e *Engine) Route(ctx context.Context, channel, chatID, senderName, text string) Reply {
	d := e.deps
	key := channel + ":" + chatID

	kind := chatlog.KindReactive
	userExtras := map[string]string{"sender_display_name": senderName}
	conv, inOutreach := d.Outreach.ActiveFor(key)
	if inOutreach {
		kind = chatlog.KindOutreach
		userExtras["outreach_campaign"] = conv.Task
	}
	d.Log.Append(chatID, kind, "user", text, userExtras)

	if d.Config.IsAdmin(channel, chatID) && d.Admin.IsCommand(text) {
		res := d.Admin.Handle(ctx, channel, chatID, text)
		d.Log.Append(chatID, chatlog.KindReactive, "system_event",
			fmt.Sprintf("Admin command handled: %s", firstWord(text)),
			map[string]string{"context": "admin_command"})
		return Reply{Text: res.Reply, Actions: res.Actions}
	}

	passphrase := d.Config.Str("ai_toggle_passphrase", "")
	if passphrase != "" && strings.EqualFold(strings.TrimSpace(text), passphrase) {
		return e.toggleAI(chatID, senderName)
	}

	if inOutreach {
		return e.continueOutreach(ctx, conv, key, chatID, senderName, text)
	}

	return e.reactive(ctx, key, chatID, senderName, text)
}

func (e *Engine) toggleAI(chatID, senderName string) Reply {
	d := e.deps
	newState := !d.Config.Bool("ai_is_active", true)
	d.Config.Set("ai_is_active", newState)
	if err := d.Config.Persist(); err != nil {
		log.Printf("[Router] persisting AI toggle: %v", err)
	}
	log.Printf("[Router] AI state toggled by %s (%s), now active=%t", senderName, chatID, newState)

	status := "متوقف (غير نشط)"
	statusEN := "INACTIVE (OFF)"
	if newState {
		status = "يعمل (نشط)"
		statusEN = "ACTIVE (ON)"
	}
	d.Log.Append(chatID, chatlog.KindReactive, "system_event",
		fmt.Sprintf("AI Toggled to %t by user passphrase.", newState),
		map[string]string{"sender_display_name": senderName})
	return Reply{Text: fmt.Sprintf("المساعد الآلي الآن %s.\nReactive AI is now %s.", status, statusEN)}
}

func (e *Engine) continueOutreach(ctx context.Context, conv *outreach.Conversation, key, chatID, senderName, text string) Reply {
	d := e.deps

	mode := d.Config.Str("outreach_settings.approval_mode", "FIRST_ONLY")
	holdForApproval := mode == "ALL_REPLIES" && !d.Outreach.HasSource(key)

	response, err := e.chat(ctx, providers.ChatRequest{
		SystemPrompt: conv.SystemPrompt,
		History:      conv.History.Turns(),
		UserMessage:  text,
	})
	conv.History.Append("user", text)
	d.Outreach.ClearSource(key)

	if err != nil {
		log.Printf("[Router] outreach LLM call for %s failed: %v", key, err)
		errText := "خطأ: " + err.Error()
		d.Log.Append(chatID, chatlog.KindOutreach, "assistant", errText,
			map[string]string{"outreach_campaign": conv.Task, "is_error": "true"})
		return Reply{Text: errText}
	}

	if holdForApproval {
		pending := d.Outreach.AddPendingReply(conv.Channel, conv.ChatID, response)
		prefix := d.Config.Str("command_prefix", "$")
		e.notify(conv.Channel, fmt.Sprintf(
			"Outreach Target '%s' (%s) replied: '%s'\nAI proposes reply (ALL_REPLIES mode): '%s'\nUse %ssendreply %s <1|2|3> [\"edited_text\"] or %slistpendingreplies.",
			senderName, chatID, text, response, prefix, pending.ID, prefix))
		d.Log.Append(chatID, chatlog.KindOutreach, "system_event",
			fmt.Sprintf("Reply held for admin approval (%s).", pending.ID),
			map[string]string{"outreach_campaign": conv.Task})
		return Reply{}
	}

	conv.History.Append("assistant", response)
	d.Log.Append(chatID, chatlog.KindOutreach, "assistant", response,
		map[string]string{"outreach_campaign": conv.Task})

	if d.Config.Bool("outreach_settings.notify_admin_on_reply", true) {
		e.notify(conv.Channel, fmt.Sprintf(
			"Outreach Target '%s' (%s) replied: '%s'\nAI replied: '%s'",
			senderName, chatID, text, response))
	}
	return Reply{Text: response}
}

func (e *Engine) reactive(ctx context.Context, key, chatID, senderName, text string) Reply {
	d := e.deps

	if !d.Config.Bool("ai_is_active", true) {
		log.Printf("[Router] AI inactive, batch from %s (%s) logged only", senderName, chatID)
		d.Log.Append(chatID, chatlog.KindReactive, "system_event",
			"AI Inactive - Message not processed by LLM.",
			map[string]string{"sender_display_name": senderName})
		return Reply{}
	}

	ring := e.historyFor(key)
	systemPrompt := prompts.ReactiveSystemPrompt(d.Config)

	response, err := e.chat(ctx, providers.ChatRequest{
		SystemPrompt: systemPrompt,
		History:      ring.Turns(),
		UserMessage:  text,
	})
	ring.Append("user", text)

	var parts []string
	if pre := d.Config.Str("fixed_pre_ai_response_message", ""); pre != "" {
		parts = append(parts, pre)
	}
	outcomeExtras := map[string]string{"model": d.Config.Str("ollama_model_name", "")}
	if err != nil {
		log.Printf("[Router] reactive LLM call for %s failed: %v", key, err)
		parts = append(parts, "خطأ: "+err.Error())
		outcomeExtras["is_error"] = "true"
	} else if response == "" {
		parts = append(parts, genericFallback)
	} else {
		ring.Append("assistant", response)
		if persona := d.Config.Str("ai_persona_prefix_message", ""); persona != "" {
			parts = append(parts, persona+response)
		} else {
			parts = append(parts, response)
		}
	}
	if post := d.Config.Str("fixed_post_ai_response_message", ""); post != "" {
		parts = append(parts, post)
	}

	final := strings.TrimSpace(strings.Join(parts, "\n"))
	d.Log.Append(chatID, chatlog.KindReactive, "assistant", final, outcomeExtras)
	return Reply{Text: final}
}

// chat invokes the provider with the configured model, options, and a
// request deadline taken from the live configuration.
func (e *Engine) chat(ctx context.Context, req providers.ChatRequest) (string, error) {
	d := e.deps
	req.Model = d.Config.Str("ollama_model_name", "")
	if v, ok := d.Config.Get("ollama_model_options"); ok {
		req.Options, _ = v.(map[string]any)
	}

	timeout := d.Config.Float("ollama_request_timeout_seconds", 120)
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
	defer cancel()
	return d.Provider.Chat(callCtx, req)
}

// historyFor returns the reactive history ring for key, resizing it if
// the configured turn limit changed since last use.
func (e *Engine) historyFor(key string) *history.Ring {
	capacity := 0
	if turns := e.deps.Config.Int("max_chat_history_turns", 20); turns > 0 {
		capacity = turns * 2
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	ring, ok := e.histories[key]
	if !ok {
		ring = history.NewRing(capacity)
		e.histories[key] = ring
	} else if ring.Capacity() != capacity {
		ring.Resize(capacity)
	}
	return ring
}

func (e *Engine) notify(channel, text string) {
	if e.deps.NotifyAdmin != nil {
		e.deps.NotifyAdmin(channel, text)
	}
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
