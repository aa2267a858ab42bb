package admin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hosamdev/wassist/internal/chatlog"
	"github.com/hosamdev/wassist/internal/config"
	"github.com/hosamdev/wassist/internal/numlist"
	"github.com/hosamdev/wassist/internal/outreach"
	"github.com/hosamdev/wassist/internal/prompts"
	"github.com/hosamdev/wassist/internal/providers"
)

type fakeProvider struct {
	chatReply string
	chatErr   error
	models    []string
	modelsErr error
	lastReq   providers.ChatRequest
}

func (f *fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (string, error) {
	f.lastReq = req
	return f.chatReply, f.chatErr
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

type sentMessage struct {
	channel, chatID, text string
}

type testEnv struct {
	it       *Interpreter
	cfg      *config.Store
	provider *fakeProvider
	store    *outreach.Store
	lists    *numlist.Registry
	logger   *chatlog.Logger
	sent     []sentMessage
	sendErr  error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	env := &testEnv{
		cfg:      cfg,
		provider: &fakeProvider{chatReply: "proposed opener"},
		store:    outreach.NewStore(),
		lists:    numlist.NewRegistry(),
		logger:   chatlog.NewLogger(filepath.Join(dir, "logs"), 20),
	}
	lib := prompts.NewLibrary(filepath.Join(dir, "outreach_prompts.json"))
	require.NoError(t, lib.Load())

	env.it = NewInterpreter(Deps{
		Config:   cfg,
		Provider: env.provider,
		Outreach: env.store,
		Prompts:  lib,
		Lists:    env.lists,
		Log:      env.logger,
		Send: func(channel, chatID, text string) error {
			if env.sendErr != nil {
				return env.sendErr
			}
			env.sent = append(env.sent, sentMessage{channel, chatID, text})
			return nil
		},
	})
	return env
}

func (e *testEnv) run(t *testing.T, text string) Result {
	t.Helper()
	return e.it.Handle(context.Background(), "whatsapp", "admin@c.us", text)
}

func TestIsCommand(t *testing.T) {
	env := newTestEnv(t)
	assert.True(t, env.it.IsCommand("$help"))
	assert.True(t, env.it.IsCommand("  $aistatus"))
	assert.False(t, env.it.IsCommand("hello"))
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	res := env.run(t, "$bogus")
	assert.Contains(t, res.Reply, "Unknown admin command: 'bogus'")
	assert.Contains(t, res.Reply, "$help")
}

func TestSetConfig_JSONValueAndPersist(t *testing.T) {
	env := newTestEnv(t)
	res := env.run(t, "$setconfig ollama_model_options.num_ctx 8192")
	assert.Contains(t, res.Reply, "set to: 8192")
	assert.Equal(t, 8192, env.cfg.Int("ollama_model_options.num_ctx", 0))

	// Change survives a reload, proving it was persisted.
	require.NoError(t, env.cfg.Reload())
	assert.Equal(t, 8192, env.cfg.Int("ollama_model_options.num_ctx", 0))
}

func TestSetConfig_NonJSONFallsBackToString(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "$setconfig ai_toggle_passphrase quiet now please")
	assert.Equal(t, "quiet now please", env.cfg.Str("ai_toggle_passphrase", ""))
}

func TestGetConfig_PathAndMissing(t *testing.T) {
	env := newTestEnv(t)
	res := env.run(t, "$getconfig outreach_settings.approval_mode")
	assert.Contains(t, res.Reply, "FIRST_ONLY")

	res = env.run(t, "$getconfig nope.nothing")
	assert.Contains(t, res.Reply, "not found")
}

func TestAIStatus(t *testing.T) {
	env := newTestEnv(t)
	assert.Contains(t, env.run(t, "$aistatus").Reply, "ACTIVE (ON)")
	env.cfg.Set("ai_is_active", false)
	assert.Contains(t, env.run(t, "$aistatus").Reply, "INACTIVE (OFF)")
}

func TestSetModel_ByNumberFromListModels(t *testing.T) {
	env := newTestEnv(t)
	env.provider.models = []string{"gemma3:4b", "llama3:8b"}

	res := env.run(t, "$listmodels")
	assert.Contains(t, res.Reply, "1. gemma3:4b")
	assert.Contains(t, res.Reply, "2. llama3:8b")

	res = env.run(t, "$setmodel 2")
	assert.Contains(t, res.Reply, "llama3:8b")
	assert.Equal(t, "llama3:8b", env.cfg.Str("ollama_model_name", ""))
}

func TestListModels_Error(t *testing.T) {
	env := newTestEnv(t)
	env.provider.modelsErr = errors.New("connection refused")
	res := env.run(t, "$listmodels")
	assert.Contains(t, res.Reply, "Error fetching models")
}

func TestTempAndCtxValidation(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.run(t, "$settemp 0.9").Reply, "0.90")
	assert.Equal(t, 0.9, env.cfg.Float("ollama_model_options.temperature", 0))
	assert.Contains(t, env.run(t, "$settemp 5").Reply, "0.0-2.0")
	assert.Contains(t, env.run(t, "$settemp abc").Reply, "Usage")

	assert.Contains(t, env.run(t, "$setctx 2048").Reply, "2048")
	assert.Contains(t, env.run(t, "$setctx -1").Reply, "positive")

	assert.Contains(t, env.run(t, "$sethistoryturns 0").Reply, "set to 0")
	assert.Contains(t, env.run(t, "$sethistoryturns -2").Reply, "non-negative")
}

func TestOutreachPromptLibraryCommands(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, `$addoutreachprompt greeting عرّف عن نفسك بلطف`)
	assert.Contains(t, res.Reply, "'greeting' added")

	res = env.run(t, "$listoutreachprompts")
	assert.Contains(t, res.Reply, "1. greeting")

	res = env.run(t, "$getoutreachprompt 1")
	assert.Contains(t, res.Reply, "عرّف عن نفسك بلطف")

	env.run(t, "$listoutreachprompts")
	res = env.run(t, "$deloutreachprompt 1")
	assert.Contains(t, res.Reply, "'greeting' deleted")

	res = env.run(t, "$listoutreachprompts")
	assert.Contains(t, res.Reply, "No custom outreach prompts")
}

func TestPrepareOutreach_DirectMessage(t *testing.T) {
	env := newTestEnv(t)
	env.provider.chatReply = "أهلاً، هل تهتم بخدماتنا؟"

	res := env.run(t, `$prepareoutreach 15551234@c.us "Hello, interested in our services?"`)
	assert.Contains(t, res.Reply, "ID: p2")
	assert.Contains(t, res.Reply, "أهلاً، هل تهتم بخدماتنا؟")

	// Literal message becomes the model's user prompt, base prompt the system prompt.
	assert.Equal(t, "Hello, interested in our services?", env.provider.lastReq.UserMessage)
	assert.Equal(t, env.cfg.Str("base_system_prompt", ""), env.provider.lastReq.SystemPrompt)

	proposals := env.store.Proposals()
	require.Len(t, proposals, 1)
	assert.Equal(t, "15551234@c.us", proposals[0].ChatID)
}

func TestPrepareOutreach_PromptKey(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "$addoutreachprompt intro أنت تفتح محادثة تعريفية")

	env.run(t, "$prepareoutreach 15551234@c.us intro")
	assert.Equal(t, "أنت تفتح محادثة تعريفية", env.provider.lastReq.SystemPrompt)
	assert.Equal(t, outreachInitiator, env.provider.lastReq.UserMessage)
}

func TestPrepareOutreach_InvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	res := env.run(t, `$prepareoutreach not-a-chat "hi"`)
	assert.Contains(t, res.Reply, "Invalid target ID format")
	assert.Empty(t, env.store.Proposals())
}

func TestPrepareOutreach_LLMFailureLeavesNoProposal(t *testing.T) {
	env := newTestEnv(t)
	env.provider.chatErr = errors.New("timeout")

	res := env.run(t, `$prepareoutreach 15551234@c.us "hi"`)
	assert.Contains(t, res.Reply, "Could not generate")
	assert.Empty(t, env.store.Proposals())
}

func TestApproveOutreach_SendAsIs(t *testing.T) {
	env := newTestEnv(t)
	env.provider.chatReply = "proposed text"
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)

	res := env.run(t, "$approveoutreach p2 1")
	assert.Contains(t, res.Reply, "now active")

	require.Len(t, env.sent, 1)
	assert.Equal(t, "15551234@c.us", env.sent[0].chatID)
	assert.Equal(t, "proposed text", env.sent[0].text)

	assert.Empty(t, env.store.Proposals())
	conv, ok := env.store.ActiveFor("whatsapp:15551234@c.us")
	require.True(t, ok)
	assert.Equal(t, "proposed text", conv.History.Turns()[0].Content)

	records, err := env.logger.Tail("15551234@c.us", chatlog.KindOutreach, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "assistant", records[0].Role)
}

func TestApproveOutreach_EditAndSend(t *testing.T) {
	env := newTestEnv(t)
	env.provider.chatReply = "original proposal"
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)

	env.run(t, `$approveoutreach p2 2 "my edited opener"`)

	require.Len(t, env.sent, 1)
	assert.Equal(t, "my edited opener", env.sent[0].text)
	conv, ok := env.store.ActiveFor("whatsapp:15551234@c.us")
	require.True(t, ok)
	assert.Equal(t, "my edited opener", conv.History.Turns()[0].Content)
}

func TestApproveOutreach_EditRequiresText(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)

	res := env.run(t, "$approveoutreach p2 2")
	assert.Contains(t, res.Reply, "requires edited text")
	assert.Len(t, env.store.Proposals(), 1, "proposal must survive")
}

func TestApproveOutreach_CancelAction(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)

	res := env.run(t, "$approveoutreach p2 3")
	assert.Contains(t, res.Reply, "cancelled")
	assert.Empty(t, env.store.Proposals())
	assert.Empty(t, env.sent)
}

func TestApproveOutreach_SendFailureKeepsProposal(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)
	env.sendErr = errors.New("bridge down")

	res := env.run(t, "$approveoutreach p2 1")
	assert.Contains(t, res.Reply, "Error sending")
	assert.Len(t, env.store.Proposals(), 1)
	_, ok := env.store.ActiveFor("whatsapp:15551234@c.us")
	assert.False(t, ok)
}

func TestApproveOutreach_ByListNumber(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)
	env.run(t, "$listpreparedoutreach")

	res := env.run(t, "$approveoutreach 1 1")
	assert.Contains(t, res.Reply, "now active")
}

func TestEndOutreach(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)
	env.run(t, "$approveoutreach p2 1")

	res := env.run(t, "$endoutreach 15551234@c.us")
	assert.Contains(t, res.Reply, "marked inactive")

	_, ok := env.store.ActiveFor("whatsapp:15551234@c.us")
	assert.False(t, ok)

	res = env.run(t, "$endoutreach 15551234@c.us")
	assert.Contains(t, res.Reply, "No active outreach")
}

func TestListActiveOutreach_AndEndByNumber(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)
	env.run(t, "$approveoutreach p2 1")

	res := env.run(t, "$listactiveoutreach")
	assert.Contains(t, res.Reply, "1. Target: 15551234@c.us")

	res = env.run(t, "$endoutreach 1")
	assert.Contains(t, res.Reply, "marked inactive")
}

func TestGetOutreachDetails_ActiveWithLogs(t *testing.T) {
	env := newTestEnv(t)
	env.provider.chatReply = "opener"
	env.run(t, `$prepareoutreach 15551234@c.us "hi"`)
	env.run(t, "$approveoutreach p2 1")

	res := env.run(t, "$getoutreachdetails 15551234@c.us")
	assert.Contains(t, res.Reply, "Active Outreach")
	assert.Contains(t, res.Reply, "ASSISTANT: opener")
	assert.Contains(t, res.Reply, "Persistent Log")
}

func TestPendingReplies_SendFlow(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddPendingReply("whatsapp", "15551234@c.us", "held reply")

	res := env.run(t, "$listpendingreplies")
	assert.Contains(t, res.Reply, "ID: r2")

	res = env.run(t, "$sendreply r2 1")
	assert.Contains(t, res.Reply, "sent to 15551234@c.us")
	require.Len(t, env.sent, 1)
	assert.Equal(t, "held reply", env.sent[0].text)
	assert.Empty(t, env.store.PendingReplies())
}

func TestPendingReplies_DiscardAndEdit(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddPendingReply("whatsapp", "a@c.us", "one")
	env.store.AddPendingReply("whatsapp", "b@c.us", "two")

	res := env.run(t, "$sendreply r2 3")
	assert.Contains(t, res.Reply, "discarded")
	assert.Empty(t, env.sent)

	env.run(t, `$sendreply r3 2 "edited version"`)
	require.Len(t, env.sent, 1)
	assert.Equal(t, "edited version", env.sent[0].text)
}

func TestViewLog(t *testing.T) {
	env := newTestEnv(t)
	env.logger.Append("15551234@c.us", chatlog.KindReactive, "user", "question", nil)
	env.logger.Append("15551234@c.us", chatlog.KindReactive, "assistant", "answer", nil)

	res := env.run(t, "$viewlog")
	assert.Contains(t, res.Reply, "1. 15551234_c.us")

	res = env.run(t, "$viewlog 1 reactive")
	assert.Contains(t, res.Reply, "USER: question")
	assert.Contains(t, res.Reply, "ASSISTANT: answer")

	res = env.run(t, "$viewlog 15551234_c.us badkind")
	assert.Contains(t, res.Reply, "must be 'outreach' or 'reactive'")

	// Both the raw chat id and the sanitized directory name are accepted.
	res = env.run(t, "$viewlog 15551234@c.us reactive")
	assert.Contains(t, res.Reply, "USER: question")
	res = env.run(t, "$viewlog 15551234_c.us reactive")
	assert.Contains(t, res.Reply, "ASSISTANT: answer")
}

func TestGetHistoryAndClear(t *testing.T) {
	env := newTestEnv(t)
	assert.Contains(t, env.run(t, "$gethistory").Reply, "empty")

	env.logger.Append("chat", chatlog.KindReactive, "user", "hello there", nil)
	res := env.run(t, "$gethistory")
	assert.Contains(t, res.Reply, "hello there")

	env.run(t, "$clearhistory")
	assert.Contains(t, env.run(t, "$gethistory").Reply, "empty")
}

func TestBrowserControlActions(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, "$closebrowser")
	assert.Equal(t, []string{ActionCloseWhatsApp}, res.Actions)

	res = env.run(t, "$restartbrowser")
	assert.Equal(t, []string{ActionRestartWhatsApp}, res.Actions)

	res = env.run(t, "$openbrowser")
	assert.Equal(t, []string{ActionRestartWhatsApp}, res.Actions)
}

func TestHelp(t *testing.T) {
	env := newTestEnv(t)
	res := env.run(t, "$help")
	assert.Contains(t, res.Reply, "prepareoutreach")
	assert.Contains(t, res.Reply, "sendreply")
}

func TestSplitArgs_Quoting(t *testing.T) {
	args := splitArgs(`15551234@c.us "two words here" trailing`)
	require.Len(t, args, 3)
	assert.Equal(t, "15551234@c.us", args[0])
	assert.Equal(t, "two words here", args[1])
	assert.Equal(t, "trailing", args[2])
}

func TestValidateTarget(t *testing.T) {
	cases := []struct {
		channel, target string
		ok              bool
	}{
		{"whatsapp", "15551234@c.us", true},
		{"whatsapp", "123456@g.us", true},
		{"whatsapp", "abc@c.us", false},
		{"whatsapp", "15551234", false},
		{"telegram", "123456789", true},
		{"telegram", "-100200300", true},
		{"telegram", "user42", false},
	}
	for _, tc := range cases {
		err := validateTarget(tc.channel, tc.target)
		if tc.ok {
			assert.NoError(t, err, "%s %s", tc.channel, tc.target)
		} else {
			assert.Error(t, err, "%s %s", tc.channel, tc.target)
		}
	}
}
