package config

// Default system prompt for the reactive assistant role. The assistant
// answers on behalf of an ad agency whose staff are offline, in Arabic,
// strictly from the provided knowledge base.
const defaultSystemPrompt = "أنت مساعد آلي لوكالة إعلانات. موظفونا غير متوفرين حاليًا. " +
	"مهمتك هي تقديم معلومات حول خدماتنا وأسعارنا بناءً على قاعدة البيانات المقدمة لك فقط. " +
	"الرجاء الرد باللغة العربية. إذا كان السؤال خارج نطاق المعلومات المتوفرة، أجب بأدب أنك لا تملك المعلومة."

// Defaults returns the default admin configuration document.
// Stored overrides are merged on top of this at load time.
func Defaults() map[string]any {
	return map[string]any{
		"admin_ids": map[string]any{
			"whatsapp": "",
			"telegram": "",
		},
		"whatsapp_settings": map[string]any{
			"enabled":      true,
			"bridge_url":   "ws://localhost:3001",
			"bridge_token": "",
		},
		"telegram_settings": map[string]any{
			"enabled":   true,
			"bot_token": "",
		},
		"ai_is_active":                         true,
		"ai_toggle_passphrase":                 "ddont sspeak",
		"message_aggregation_delay_seconds":    10.0,
		"fixed_pre_ai_response_message":        "<<<النص مولد عن طريق الذكاء الاصطناعي>>>",
		"fixed_post_ai_response_message":       "<<<<(الخدمة قيد التطوير)>>>>",
		"ai_persona_prefix_message":            "",
		"base_system_prompt":                   defaultSystemPrompt,
		"knowledge_file_path":                  "",
		"outreach_prompts_file_path":           "",
		"ollama_api_base_url":                  "http://localhost:11434",
		"ollama_model_name":                    "gemma3:4b",
		"ollama_request_timeout_seconds":       120.0,
		"max_chat_history_turns":               20.0,
		"ollama_model_options": map[string]any{
			"num_ctx":        4096.0,
			"temperature":    0.4,
			"top_k":          40.0,
			"top_p":          0.9,
			"repeat_penalty": 1.1,
		},
		"command_prefix":           "$",
		"max_interaction_log_size": 20.0,
		"outreach_settings": map[string]any{
			"notify_admin_on_reply": true,
			"approval_mode":         "FIRST_ONLY",
		},
		"reactive_roles": map[string]any{
			"default_assistant": defaultSystemPrompt,
		},
		"active_reactive_role": "default_assistant",
		"ai_goals":             map[string]any{},
		"active_goals":         []any{},
		"ai_interaction_style": "friendly_professional",
	}
}
