package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "$", d["command_prefix"])
	assert.Equal(t, 10.0, d["message_aggregation_delay_seconds"])
	assert.Equal(t, true, d["ai_is_active"])
	assert.Equal(t, "FIRST_ONLY", d["outreach_settings"].(map[string]any)["approval_mode"])
}

func TestLoad_FileNotExist_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemma3:4b", s.Str("ollama_model_name", ""))

	// Defaults should have been written back
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_MergesDefaultsUnderOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"ollama_model_name": "llama3:8b",
		"ollama_model_options": {"temperature": 0.9},
		"outreach_settings": {"approval_mode": "ALL_REPLIES"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	// Overridden values win
	assert.Equal(t, "llama3:8b", s.Str("ollama_model_name", ""))
	assert.Equal(t, 0.9, s.Float("ollama_model_options.temperature", 0))
	assert.Equal(t, "ALL_REPLIES", s.Str("outreach_settings.approval_mode", ""))

	// Nested siblings inherit defaults key-by-key
	assert.Equal(t, 4096, s.Int("ollama_model_options.num_ctx", 0))
	assert.True(t, s.Bool("outreach_settings.notify_admin_on_reply", false))

	// Untouched top-level keys inherit defaults
	assert.Equal(t, "$", s.Str("command_prefix", ""))
}

func TestLoad_CorruptFile_FallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemma3:4b", s.Str("ollama_model_name", ""))

	// The corrupt file is rewritten with valid JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	assert.NoError(t, json.Unmarshal(data, &doc))
}

func TestSet_DottedPath_And_PersistReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("ollama_model_options.num_ctx", 8192.0))
	require.NoError(t, s.Set("admin_ids.whatsapp", "15551234567@c.us"))
	require.NoError(t, s.Persist())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8192, reloaded.Int("ollama_model_options.num_ctx", 0))
	assert.Equal(t, "15551234567@c.us", reloaded.AdminID("whatsapp"))
	assert.True(t, reloaded.IsAdmin("whatsapp", "15551234567@c.us"))
	assert.False(t, reloaded.IsAdmin("telegram", "15551234567@c.us"))
}

func TestSet_IntermediateNotMap(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	err = s.Set("command_prefix.sub", "x")
	assert.Error(t, err)
}

func TestGet_ReturnsCopies(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	v, ok := s.Get("ollama_model_options")
	require.True(t, ok)
	v.(map[string]any)["temperature"] = 2.0

	assert.Equal(t, 0.4, s.Float("ollama_model_options.temperature", 0))
}

func TestChatEndpoint_Derived(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434/api/chat", s.ChatEndpoint())

	require.NoError(t, s.Set("ollama_api_base_url", "http://10.0.0.5:11434/"))
	assert.Equal(t, "http://10.0.0.5:11434/api/chat", s.ChatEndpoint())
}

func TestTypedAccessors_Fallbacks(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "def", s.Str("missing.path", "def"))
	assert.Equal(t, 7, s.Int("missing.path", 7))
	assert.Equal(t, 1.5, s.Float("missing.path", 1.5))
	assert.True(t, s.Bool("missing.path", true))
	assert.Empty(t, s.StrList("missing.path"))
}
