package prompts

import (
	"log"
	"os"
	"strings"

	"github.com/hosamdev/wassist/internal/config"
)

// ReactiveSystemPrompt builds the effective system prompt for a reactive
// turn: the active role's prompt (falling back to the base prompt), the
// active goal instructions, the interaction-style hint, all wrapped by
// the knowledge preamble when a knowledge base is configured.
func ReactiveSystemPrompt(cfg *config.Store) string {
	prompt := cfg.Str("base_system_prompt", "")
	roleKey := cfg.Str("active_reactive_role", "default_assistant")
	if fragment := cfg.StrMap("reactive_roles")[roleKey]; fragment != "" && fragment != prompt {
		prompt += "\n\nتعليمات الدور الإضافية (" + roleKey + "):\n" + fragment
	}

	goals := cfg.StrMap("ai_goals")
	var goalTexts []string
	for _, key := range cfg.StrList("active_goals") {
		if text := goals[key]; text != "" {
			goalTexts = append(goalTexts, "- "+text+" ("+key+")")
		}
	}
	if len(goalTexts) > 0 {
		prompt += "\n\nالأهداف النشطة حاليًا:\n" + strings.Join(goalTexts, "\n")
	}

	if style := cfg.Str("ai_interaction_style", ""); style != "" {
		prompt += "\n\nأسلوب التفاعل المطلوب: " + style
	}

	knowledge := LoadKnowledge(cfg.Str("knowledge_file_path", ""))
	return WithKnowledge(prompt, knowledge)
}

// WithKnowledge prepends the knowledge-base preamble to a system prompt.
// An empty knowledge string leaves the prompt unchanged.
func WithKnowledge(systemPrompt, knowledge string) string {
	if knowledge == "" {
		return systemPrompt
	}
	return "المعلومات الأساسية وقاعدة المعرفة العامة (استخدمها إذا كانت ذات صلة بسؤال المستخدم):\n---\n" +
		knowledge +
		"\n---\n\nمهمتك وتعليماتك الخاصة (System Prompt):\n" +
		systemPrompt
}

// LoadKnowledge reads the knowledge file at path. Missing or unreadable
// files yield an empty string so a bad path never blocks replies.
func LoadKnowledge(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Prompts] reading knowledge file %s: %v", path, err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
