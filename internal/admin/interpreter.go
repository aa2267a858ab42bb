// Package admin interprets prefixed text commands from admin
// conversations: configuration management, model parameters, the
// outreach prompt library, the outreach approval lifecycle, and
// platform control signals.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/hosamdev/wassist/internal/chatlog"
	"github.com/hosamdev/wassist/internal/config"
	"github.com/hosamdev/wassist/internal/numlist"
	"github.com/hosamdev/wassist/internal/outreach"
	"github.com/hosamdev/wassist/internal/prompts"
	"github.com/hosamdev/wassist/internal/providers"
	"github.com/hosamdev/wassist/internal/utils"
)

// Opening instruction handed to the model when an outreach is prepared
// from a named prompt key rather than a literal message.
const outreachInitiator = "ابدأ المحادثة الآن بناءً على تعليماتك."

// Platform action tokens understood by the channel layer.
const (
	ActionCloseWhatsApp   = "close_whatsapp"
	ActionRestartWhatsApp = "restart_whatsapp"
)

// SendFunc delivers text to an arbitrary conversation on a channel.
type SendFunc func(channel, chatID, text string) error

// Result is the interpreter's outcome: a reply for the admin plus zero
// or more platform action tokens for the channel layer.
type Result struct {
	Reply   string
	Actions []string
}

// Deps wires the interpreter to the rest of the system.
type Deps struct {
	Config   *config.Store
	Provider providers.LLMProvider
	Outreach *outreach.Store
	Prompts  *prompts.Library
	Lists    *numlist.Registry
	Log      *chatlog.Logger
	Send     SendFunc
}

// Interpreter executes admin commands. Commands never return errors to
// the caller; every failure becomes a descriptive reply.
type Interpreter struct {
	deps Deps
}

// NewInterpreter creates an interpreter over the given dependencies.
func NewInterpreter(deps Deps) *Interpreter {
	return &Interpreter{deps: deps}
}

// IsCommand reports whether text is addressed to the interpreter.
func (it *Interpreter) IsCommand(text string) bool {
	prefix := it.deps.Config.Str("command_prefix", "$")
	return strings.HasPrefix(strings.TrimSpace(text), prefix)
}

// Handle parses and executes one admin command. channel and adminChatID
// identify the admin conversation the command arrived on.
func (it *Interpreter) Handle(ctx context.Context, channel, adminChatID, text string) Result {
	prefix := it.deps.Config.Str("command_prefix", "$")
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), prefix))
	command, argsStr := body, ""
	if i := strings.IndexByte(body, ' '); i >= 0 {
		command, argsStr = body[:i], strings.TrimSpace(body[i+1:])
	}
	command = strings.ToLower(command)
	log.Printf("[Admin] command %q from %s:%s", command, channel, adminChatID)

	res, configChanged := it.dispatch(ctx, channel, adminChatID, command, argsStr)
	if configChanged {
		if err := it.deps.Config.Persist(); err != nil {
			log.Printf("[Admin] persisting config: %v", err)
			res.Reply += "\n(Warning: saving config to disk failed, change is in-memory only.)"
		}
		if err := it.deps.Config.Reload(); err != nil {
			log.Printf("[Admin] reloading config: %v", err)
		}
	}
	return res
}

func (it *Interpreter) dispatch(ctx context.Context, channel, adminChatID, command, argsStr string) (Result, bool) {
	d := it.deps
	prefix := d.Config.Str("command_prefix", "$")

	switch command {

	// Config and state.
	case "setconfig":
		keyPath, valueStr, ok := strings.Cut(argsStr, " ")
		if !ok || keyPath == "" {
			return reply("Usage: %ssetconfig <key_path> <json_value>", prefix), false
		}
		valueStr = strings.TrimSpace(valueStr)
		var value any
		if err := json.Unmarshal([]byte(valueStr), &value); err != nil {
			value = valueStr
		}
		if err := d.Config.Set(keyPath, value); err != nil {
			return reply("Error setting config '%s': %v", keyPath, err), false
		}
		return reply("Config '%s' set to: %s", keyPath, valueStr), true

	case "getconfig":
		if argsStr == "" {
			data, _ := json.MarshalIndent(d.Config.Snapshot(), "", "  ")
			return reply("Current Admin Config:\n%s", data), false
		}
		v, ok := d.Config.Get(argsStr)
		if !ok {
			return reply("Error getting config '%s': Key or path not found.", argsStr), false
		}
		data, _ := json.MarshalIndent(v, "", "  ")
		return reply("Config '%s':\n%s", argsStr, data), false

	case "saveconfig":
		if err := d.Config.Persist(); err != nil {
			return reply("Error saving admin config: %v", err), false
		}
		return reply("Admin config explicitly saved."), false

	case "loadconfig":
		if err := d.Config.Reload(); err != nil {
			return reply("Error reloading admin config: %v", err), false
		}
		return reply("Admin config explicitly reloaded."), false

	case "aistatus":
		if d.Config.Bool("ai_is_active", true) {
			return reply("Reactive AI is ACTIVE (ON)."), false
		}
		return reply("Reactive AI is INACTIVE (OFF)."), false

	case "setprompt":
		if argsStr == "" {
			return reply("Usage: %ssetprompt <new_prompt_text>", prefix), false
		}
		d.Config.Set("base_system_prompt", argsStr)
		return reply("Base Reactive AI system prompt updated."), true

	case "getprompt":
		return reply("Current Base Reactive AI System Prompt:\n%s", d.Config.Str("base_system_prompt", "")), false

	case "setmodel":
		model, ok := d.Lists.Resolve(numlist.KeyAvailableModels, strings.TrimSpace(argsStr), true)
		if !ok || model == "" {
			return reply("Usage: %ssetmodel <model_name_or_number_from_listmodels>", prefix), false
		}
		d.Config.Set("ollama_model_name", model)
		return reply("Ollama model set to '%s'.", model), true

	case "getmodel":
		return reply("Current Ollama model: %s", d.Config.Str("ollama_model_name", "")), false

	case "listmodels":
		models, err := d.Provider.ListModels(ctx)
		if err != nil {
			return reply("Error fetching models from Ollama: %v", err), false
		}
		if len(models) == 0 {
			return reply("No models found on the Ollama server."), false
		}
		d.Lists.Register(numlist.KeyAvailableModels, models)
		lines := []string{"Available Ollama Models:"}
		for i, name := range models {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
		}
		lines = append(lines, fmt.Sprintf("\nUse %ssetmodel <number_or_name> to select.", prefix))
		return reply("%s", strings.Join(lines, "\n")), false

	// History and logging.
	case "gethistory":
		entries := d.Log.GlobalRecent()
		if len(entries) == 0 {
			return reply("In-memory interaction log is empty."), false
		}
		lines := []string{fmt.Sprintf("In-Memory Interaction Log (last %d):", len(entries))}
		for _, e := range entries {
			content := strings.ReplaceAll(e.Record.Content, "\n", " ")
			if len([]rune(content)) > 70 {
				content = string([]rune(content)[:70]) + "..."
			}
			lines = append(lines, fmt.Sprintf("[%s] %s (%s) %s: %s",
				e.Record.Timestamp, e.Chat, e.Kind, strings.ToUpper(e.Record.Role), content))
		}
		lines = append(lines, fmt.Sprintf("\nUse %sclearhistory to clear, or %sviewlog for persistent logs.", prefix, prefix))
		return reply("%s", strings.Join(lines, "\n---\n")), false

	case "clearhistory":
		d.Log.ClearGlobalRecent()
		return reply("In-memory interaction log cleared."), false

	case "viewlog":
		return it.viewLog(argsStr, prefix), false

	// LLM parameters.
	case "sethistoryturns":
		turns, err := strconv.Atoi(argsStr)
		if err != nil {
			return reply("Usage: %ssethistoryturns <number>", prefix), false
		}
		if turns < 0 {
			return reply("Error: History turns must be non-negative."), false
		}
		d.Config.Set("max_chat_history_turns", float64(turns))
		return reply("Reactive AI max history turns set to %d.", turns), true

	case "gethistoryturns":
		return reply("Current Reactive AI max history turns: %d", d.Config.Int("max_chat_history_turns", 20)), false

	case "setctx":
		ctxSize, err := strconv.Atoi(argsStr)
		if err != nil {
			return reply("Usage: %ssetctx <number>", prefix), false
		}
		if ctxSize <= 0 {
			return reply("Error: num_ctx must be positive."), false
		}
		d.Config.Set("ollama_model_options.num_ctx", float64(ctxSize))
		return reply("Ollama num_ctx set to %d.", ctxSize), true

	case "getctx":
		return reply("Current Ollama num_ctx: %d", d.Config.Int("ollama_model_options.num_ctx", 0)), false

	case "settemp":
		temp, err := strconv.ParseFloat(argsStr, 64)
		if err != nil {
			return reply("Usage: %ssettemp <float>", prefix), false
		}
		if temp < 0.0 || temp > 2.0 {
			return reply("Error: Temperature typically 0.0-2.0."), false
		}
		d.Config.Set("ollama_model_options.temperature", temp)
		return reply("Ollama temperature set to %.2f.", temp), true

	case "gettemp":
		return reply("Current Ollama temperature: %.2f", d.Config.Float("ollama_model_options.temperature", 0)), false

	case "getoptions":
		v, _ := d.Config.Get("ollama_model_options")
		data, _ := json.MarshalIndent(v, "", "  ")
		return reply("Current Ollama Options (from config):\n%s", data), false

	// Outreach prompt library.
	case "addoutreachprompt":
		key, text, ok := strings.Cut(argsStr, " ")
		key = strings.ToLower(strings.TrimSpace(key))
		text = strings.TrimSpace(text)
		if !ok || key == "" || text == "" {
			return reply("Usage: %saddoutreachprompt <key_name> <full_prompt_text>", prefix), false
		}
		if err := d.Prompts.Add(key, text); err != nil {
			return reply("Error saving outreach prompt '%s': %v", key, err), false
		}
		return reply("Outreach prompt for key '%s' added/updated.", key), false

	case "listoutreachprompts":
		names := d.Prompts.Names()
		if len(names) == 0 {
			return reply("No custom outreach prompts defined."), false
		}
		d.Lists.Register(numlist.KeyOutreachPrompts, names)
		lines := []string{"Available Outreach Prompt Keys:"}
		for i, name := range names {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
		}
		lines = append(lines, fmt.Sprintf("\nUse %sgetoutreachprompt <number_or_key> or the key in %sprepareoutreach.", prefix, prefix))
		return reply("%s", strings.Join(lines, "\n")), false

	case "getoutreachprompt":
		key, ok := d.Lists.Resolve(numlist.KeyOutreachPrompts, strings.ToLower(strings.TrimSpace(argsStr)), true)
		if ok {
			if text, found := d.Prompts.Get(key); found {
				return reply("Outreach Prompt '%s':\n%s", key, text), false
			}
		}
		return reply("Error: Outreach prompt key '%s' not found.", argsStr), false

	case "deloutreachprompt":
		key, ok := d.Lists.Resolve(numlist.KeyOutreachPrompts, strings.ToLower(strings.TrimSpace(argsStr)), true)
		if ok {
			removed, err := d.Prompts.Delete(key)
			if err != nil {
				return reply("Error deleting outreach prompt '%s': %v", key, err), false
			}
			if removed {
				return reply("Outreach prompt '%s' deleted.", key), false
			}
		}
		return reply("Error: Outreach prompt key '%s' not found.", argsStr), false

	// Outreach lifecycle.
	case "prepareoutreach":
		return it.prepareOutreach(ctx, channel, argsStr, prefix), false

	case "listpreparedoutreach":
		proposals := d.Outreach.Proposals()
		if len(proposals) == 0 {
			return reply("No outreach proposals currently awaiting approval."), false
		}
		ids := make([]string, 0, len(proposals))
		lines := []string{"Pending Outreach Approvals:"}
		for i, p := range proposals {
			ids = append(ids, p.ID)
			lines = append(lines, fmt.Sprintf("%d. ID: %s, Target: %s, Task: %s, AI: '%s'",
				i+1, p.ID, p.ChatID, p.Task, snippet(p.Proposed)))
		}
		d.Lists.Register(numlist.KeyPreparedOutreaches, ids)
		lines = append(lines, fmt.Sprintf("\nUse %sapproveoutreach <ID_or_Number> <action_number> ...", prefix))
		return reply("%s", strings.Join(lines, "\n")), false

	case "approveoutreach":
		return it.approveOutreach(argsStr, prefix), false

	case "cancelprepared":
		id, ok := d.Lists.Resolve(numlist.KeyPreparedOutreaches, strings.TrimSpace(argsStr), true)
		if ok && d.Outreach.CancelProposal(id) {
			return reply("Prepared outreach '%s' cancelled.", id), false
		}
		return reply("Error: Prepared outreach ID '%s' not found.", argsStr), false

	case "listactiveoutreach":
		active := d.Outreach.ActiveConversations()
		if len(active) == 0 {
			return reply("No outreach conversations currently marked active."), false
		}
		keys := make([]string, 0, len(active))
		lines := []string{"Currently Active Outreach Conversations:"}
		for i, c := range active {
			keys = append(keys, c.Key())
			lines = append(lines, fmt.Sprintf("%d. Target: %s, Task: %s", i+1, c.ChatID, c.Task))
		}
		d.Lists.Register(numlist.KeyActiveOutreaches, keys)
		lines = append(lines, fmt.Sprintf("\nUse %sgetoutreachdetails <Number_or_TargetID> or %sendoutreach <Number_or_TargetID>.", prefix, prefix))
		return reply("%s", strings.Join(lines, "\n")), false

	case "getoutreachdetails":
		return it.outreachDetails(channel, strings.TrimSpace(argsStr)), false

	case "endoutreach":
		token, ok := d.Lists.Resolve(numlist.KeyActiveOutreaches, strings.TrimSpace(argsStr), true)
		if !ok {
			return reply("Error: No active outreach found for %s.", argsStr), false
		}
		key := conversationKey(channel, token)
		conv, found := d.Outreach.ActiveFor(key)
		if !found || !d.Outreach.End(key) {
			return reply("Error: No active outreach found for %s.", argsStr), false
		}
		d.Log.Append(conv.ChatID, chatlog.KindOutreach, "system_event",
			fmt.Sprintf("Admin ended outreach. Task: %s", conv.Task), nil)
		return reply("Outreach with %s marked inactive. Will revert to default AI on next message.", conv.ChatID), false

	// Pending-reply approval (ALL_REPLIES mode).
	case "listpendingreplies":
		pending := d.Outreach.PendingReplies()
		if len(pending) == 0 {
			return reply("No outreach replies awaiting approval."), false
		}
		ids := make([]string, 0, len(pending))
		lines := []string{"Outreach Replies Awaiting Approval:"}
		for i, r := range pending {
			ids = append(ids, r.ID)
			lines = append(lines, fmt.Sprintf("%d. ID: %s, Target: %s, AI: '%s'", i+1, r.ID, r.ChatID, snippet(r.Proposed)))
		}
		d.Lists.Register(numlist.KeyPendingReplies, ids)
		lines = append(lines, fmt.Sprintf("\nUse %ssendreply <ID_or_Number> <1|2|3> [\"edited_text\"].", prefix))
		return reply("%s", strings.Join(lines, "\n")), false

	case "sendreply":
		return it.sendReply(argsStr, prefix), false

	// Platform control.
	case "closebrowser":
		return Result{
			Reply:   "Attempting to close WhatsApp bridge connection...",
			Actions: []string{ActionCloseWhatsApp},
		}, false

	case "openbrowser", "restartbrowser":
		return Result{
			Reply:   fmt.Sprintf("Attempting to %s WhatsApp bridge connection...", command),
			Actions: []string{ActionRestartWhatsApp},
		}, false

	case "help":
		return reply("%s", helpText(prefix)), false

	default:
		return reply("Unknown admin command: '%s'. Try %shelp.", command, prefix), false
	}
}

func (it *Interpreter) prepareOutreach(ctx context.Context, channel, argsStr, prefix string) Result {
	d := it.deps
	args := splitArgs(argsStr)
	if len(args) < 2 {
		return reply("Usage: %sprepareoutreach <target_id> <prompt_key_or_\"initial_message\"> [\"custom_system_prompt\"]", prefix)
	}

	target := strings.TrimSpace(args[0])
	if err := validateTarget(channel, target); err != nil {
		return reply("Error: %v", err)
	}

	keyOrMessage, _ := d.Lists.Resolve(numlist.KeyOutreachPrompts, args[1], false)
	customSystemPrompt := ""
	if len(args) > 2 {
		customSystemPrompt = strings.TrimSpace(args[2])
	}

	systemPrompt := customSystemPrompt
	initiator := keyOrMessage
	task := fmt.Sprintf("Outreach with direct initial message by AI: %s", snippet(keyOrMessage))
	if libraryPrompt, found := d.Prompts.Get(keyOrMessage); found {
		task = fmt.Sprintf("Outreach using prompt key: %s", keyOrMessage)
		initiator = outreachInitiator
		if systemPrompt == "" {
			systemPrompt = libraryPrompt
		}
	} else if systemPrompt == "" {
		systemPrompt = d.Config.Str("base_system_prompt", "")
	}

	proposed, err := d.Provider.Chat(ctx, providers.ChatRequest{
		SystemPrompt: systemPrompt,
		UserMessage:  initiator,
		Model:        d.Config.Str("ollama_model_name", ""),
		Options:      modelOptions(d.Config),
	})
	if err != nil {
		log.Printf("[Admin] outreach proposal generation for %s failed: %v", target, err)
		return reply("Error: Could not generate proposed AI message for outreach to %s: %v", target, err)
	}

	p := d.Outreach.Prepare(channel, target, proposed, systemPrompt, task)
	log.Printf("[Admin] outreach proposal %s created for %s:%s", p.ID, channel, target)

	msg := fmt.Sprintf(
		"Prepared outreach for %s (ID: %s).\nTask: %s\nAI proposes: '%s'\n\nActions:\n1. Send As Is\n2. Edit & Send\n3. Cancel\nReply with: %sapproveoutreach %s <action_number> [\"edited_text_if_action_2\"]",
		target, p.ID, task, proposed, prefix, p.ID)
	if _, active := d.Outreach.ActiveFor(p.Key()); active {
		msg += fmt.Sprintf("\nWarning: %s already has an active outreach; approving will replace it.", target)
	}
	return reply("%s", msg)
}

func (it *Interpreter) approveOutreach(argsStr, prefix string) Result {
	d := it.deps
	args := splitArgs(argsStr)
	if len(args) < 2 {
		return reply("Usage: %sapproveoutreach <prepared_id_or_number> <action_number> [\"edited_text\"]", prefix)
	}

	id, ok := d.Lists.Resolve(numlist.KeyPreparedOutreaches, args[0], true)
	if !ok {
		return reply("Error: Prepared outreach ID '%s' not found or invalid.", args[0])
	}
	p, found := d.Outreach.Proposal(id)
	if !found {
		return reply("Error: Prepared outreach ID '%s' not found or invalid.", args[0])
	}

	action, err := strconv.Atoi(args[1])
	if err != nil || action < 1 || action > 3 {
		return reply("Error: Action number must be 1 (Send), 2 (Edit & Send), or 3 (Cancel).")
	}

	var text string
	switch action {
	case 1:
		text = p.Proposed
	case 2:
		if len(args) < 3 || strings.TrimSpace(args[2]) == "" {
			return reply("Error: Action 2 (Edit & Send) requires edited text.")
		}
		text = strings.TrimSpace(args[2])
	case 3:
		d.Outreach.CancelProposal(id)
		return reply("Prepared outreach '%s' for %s cancelled.", id, p.ChatID)
	}

	if err := d.Send(p.Channel, p.ChatID, text); err != nil {
		log.Printf("[Admin] sending approved outreach to %s:%s: %v", p.Channel, p.ChatID, err)
		return reply("Error sending approved outreach message to %s: %v", p.ChatID, err)
	}

	d.Log.Append(p.ChatID, chatlog.KindOutreach, "assistant", text,
		map[string]string{"outreach_campaign": p.Task})

	if _, err := d.Outreach.Activate(id, text, historyCapacity(d.Config)); err != nil {
		return reply("Error activating outreach '%s': %v", id, err)
	}
	log.Printf("[Admin] outreach for %s:%s activated from %s", p.Channel, p.ChatID, id)
	return reply("Outreach '%s' approved for %s. Message sent.\nOutreach to %s is now active.", id, p.ChatID, p.ChatID)
}

func (it *Interpreter) sendReply(argsStr, prefix string) Result {
	d := it.deps
	args := splitArgs(argsStr)
	if len(args) < 2 {
		return reply("Usage: %ssendreply <reply_id_or_number> <action_number> [\"edited_text\"]", prefix)
	}

	id, ok := d.Lists.Resolve(numlist.KeyPendingReplies, args[0], true)
	if !ok {
		return reply("Error: Pending reply ID '%s' not found or invalid.", args[0])
	}
	r, found := d.Outreach.PendingReply(id)
	if !found {
		return reply("Error: Pending reply ID '%s' not found or invalid.", args[0])
	}

	action, err := strconv.Atoi(args[1])
	if err != nil || action < 1 || action > 3 {
		return reply("Error: Action number must be 1 (Send), 2 (Edit & Send), or 3 (Discard).")
	}

	var text string
	switch action {
	case 1:
		text = r.Proposed
	case 2:
		if len(args) < 3 || strings.TrimSpace(args[2]) == "" {
			return reply("Error: Action 2 (Edit & Send) requires edited text.")
		}
		text = strings.TrimSpace(args[2])
	case 3:
		d.Outreach.RemovePendingReply(id)
		return reply("Pending reply '%s' for %s discarded.", id, r.ChatID)
	}

	if err := d.Send(r.Channel, r.ChatID, text); err != nil {
		log.Printf("[Admin] sending approved reply to %s:%s: %v", r.Channel, r.ChatID, err)
		return reply("Error sending approved reply to %s: %v", r.ChatID, err)
	}

	key := r.Channel + ":" + r.ChatID
	if conv, active := d.Outreach.ActiveFor(key); active {
		conv.History.Append("assistant", text)
	}
	d.Log.Append(r.ChatID, chatlog.KindOutreach, "assistant", text,
		map[string]string{"approved_reply": id})
	d.Outreach.RemovePendingReply(id)
	return reply("Reply '%s' sent to %s.", id, r.ChatID)
}

func (it *Interpreter) outreachDetails(channel, token string) Result {
	d := it.deps

	activeToken, _ := d.Lists.Resolve(numlist.KeyActiveOutreaches, token, true)
	key := conversationKey(channel, activeToken)
	if conv, ok := d.Outreach.Conversation(key); ok {
		lines := []string{
			fmt.Sprintf("Details for Active Outreach: %s", conv.ChatID),
			fmt.Sprintf("Task: %s", conv.Task),
			fmt.Sprintf("Active: %t", conv.Active),
			fmt.Sprintf("System Prompt Used (Initial): %s", snippet(conv.SystemPrompt)),
			"",
			"--- Conversation History (In-Memory) ---",
		}
		for _, turn := range conv.History.Turns() {
			lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(turn.Role), turn.Content))
		}
		records, err := d.Log.Tail(conv.ChatID, chatlog.KindOutreach, 50)
		if err != nil {
			lines = append(lines, fmt.Sprintf("Error reading persistent log: %v", err))
		} else if len(records) > 0 {
			lines = append(lines, "", "--- Conversation History (Persistent Log) ---")
			for _, rec := range records {
				lines = append(lines, fmt.Sprintf("[%s] %s: %s", rec.Timestamp, strings.ToUpper(rec.Role), rec.Content))
			}
		}
		return reply("%s", strings.Join(lines, "\n"))
	}

	proposalID, _ := d.Lists.Resolve(numlist.KeyPreparedOutreaches, token, false)
	if p, ok := d.Outreach.Proposal(proposalID); ok {
		return reply("%s", strings.Join([]string{
			fmt.Sprintf("Details for Prepared Outreach Proposal: %s", p.ID),
			fmt.Sprintf("Target: %s", p.ChatID),
			fmt.Sprintf("Task: %s", p.Task),
			fmt.Sprintf("System Prompt Used (Initial): %s", snippet(p.SystemPrompt)),
			fmt.Sprintf("Proposed AI Message: %s", p.Proposed),
		}, "\n"))
	}

	return reply("Error: No active or prepared outreach found for ID '%s'.", token)
}

func (it *Interpreter) viewLog(argsStr, prefix string) Result {
	d := it.deps
	args := splitArgs(argsStr)
	if len(args) == 0 {
		chats, err := d.Log.ListChats()
		if err != nil {
			return reply("Error listing log chats: %v", err)
		}
		if len(chats) == 0 {
			return reply("No persistent logs recorded yet.")
		}
		d.Lists.Register(numlist.KeyLogChats, chats)
		lines := []string{"Chats with persistent logs:"}
		for i, chat := range chats {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, chat))
		}
		lines = append(lines, fmt.Sprintf("\nUse %sviewlog <chatID_or_num> <outreach|reactive> [last_N].", prefix))
		return reply("%s", strings.Join(lines, "\n"))
	}
	if len(args) < 2 {
		return reply("Usage: %sviewlog <chatID_or_num> <outreach|reactive> [last_N]", prefix)
	}

	chat, ok := d.Lists.Resolve(numlist.KeyLogChats, args[0], true)
	if !ok {
		return reply("Error: Log chat '%s' not found.", args[0])
	}
	kind := strings.ToLower(args[1])
	if kind != chatlog.KindOutreach && kind != chatlog.KindReactive {
		return reply("Error: Log kind must be 'outreach' or 'reactive'.")
	}
	n := 20
	if len(args) > 2 {
		parsed, err := strconv.Atoi(args[2])
		if err != nil || parsed <= 0 {
			return reply("Error: last_N must be a positive number.")
		}
		n = parsed
	}

	records, err := d.Log.TailByDir(utils.SafeFilename(chat), kind, n)
	if err != nil {
		return reply("Error reading persistent log: %v", err)
	}
	if len(records) == 0 {
		return reply("No %s log records for '%s'.", kind, chat)
	}
	lines := []string{fmt.Sprintf("Last %d %s log records for %s:", len(records), kind, chat)}
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", rec.Timestamp, strings.ToUpper(rec.Role), rec.Content))
	}
	return reply("%s", strings.Join(lines, "\n"))
}

func helpText(prefix string) string {
	return fmt.Sprintf(
		"Admin Commands (%[1]s):\n"+
			"--- Config & State ---\n"+
			"- setconfig <key.path> <json_value>\n- getconfig [key.path]\n"+
			"- saveconfig | loadconfig\n"+
			"- aistatus | setprompt <text> | getprompt\n"+
			"- setmodel <name_or_num> | getmodel | listmodels\n"+
			"--- History & Logging ---\n"+
			"- gethistory | clearhistory (in-memory)\n"+
			"- viewlog [chatID_or_num <outreach|reactive> [last_N]]\n"+
			"--- LLM Params ---\n"+
			"- sethistoryturns <num> | gethistoryturns\n"+
			"- setctx <num> | getctx | settemp <float> | gettemp | getoptions\n"+
			"--- Outreach Prompts ---\n"+
			"- addoutreachprompt <key> <text>\n"+
			"- listoutreachprompts | getoutreachprompt <key_or_num> | deloutreachprompt <key_or_num>\n"+
			"--- Outreach Execution & Approval ---\n"+
			"- prepareoutreach <target> <prompt_key_or_\"msg\"> [\"sys_prompt\"]\n"+
			"- listpreparedoutreach\n"+
			"- approveoutreach <prepID_or_num> <1-3> [\"edited_text_for_action_2\"]\n"+
			"- (1:SendAsIs, 2:Edit&Send, 3:Cancel)\n"+
			"- cancelprepared <prepID_or_num>\n"+
			"- listactiveoutreach | getoutreachdetails <targetID_or_num>\n"+
			"- endoutreach <targetID_or_num>\n"+
			"- listpendingreplies | sendreply <replyID_or_num> <1-3> [\"edited_text\"]\n"+
			"--- Platform Control ---\n"+
			"- closebrowser | openbrowser | restartbrowser\n"+
			"- help",
		prefix)
}

// splitArgs splits on spaces while honoring double-quoted segments, so
// multi-word prompts and messages travel as single arguments.
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	inQuote := false
	for _, ch := range s {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case ch == ' ' && !inQuote:
			if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(ch)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

// validateTarget checks the target id format for the channel the admin
// command arrived on.
func validateTarget(channel, target string) error {
	switch channel {
	case "whatsapp":
		user, domain, ok := strings.Cut(target, "@")
		if !ok || (domain != "c.us" && domain != "g.us") || !isDigits(user) {
			return fmt.Errorf("Invalid target ID format (must be number@c.us or group_id@g.us)")
		}
	case "telegram":
		if !isDigits(strings.TrimPrefix(target, "-")) {
			return fmt.Errorf("Invalid target ID format (must be a numeric Telegram chat id)")
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// conversationKey qualifies a bare chat id with the admin's channel;
// tokens that already carry a channel prefix pass through.
func conversationKey(channel, token string) string {
	if strings.Contains(token, ":") {
		return token
	}
	return channel + ":" + token
}

func historyCapacity(cfg *config.Store) int {
	turns := cfg.Int("max_chat_history_turns", 20)
	if turns <= 0 {
		return 0
	}
	return turns * 2
}

func modelOptions(cfg *config.Store) map[string]any {
	v, ok := cfg.Get("ollama_model_options")
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

func snippet(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > 80 {
		return string(r[:80]) + "..."
	}
	return s
}

func reply(format string, args ...any) Result {
	return Result{Reply: fmt.Sprintf(format, args...)}
}
