// Package providers implements LLM backends for reply generation.
package providers

import (
	"context"

	"github.com/hosamdev/wassist/internal/history"
)

// ChatRequest carries one model invocation.
type ChatRequest struct {
	SystemPrompt string
	History      []history.Turn
	UserMessage  string
	Model        string
	Options      map[string]any
}

// LLMProvider generates a reply for a conversation turn. Implementations
// must honor ctx cancellation and return an error rather than embedding
// failure text in the reply.
type LLMProvider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}
