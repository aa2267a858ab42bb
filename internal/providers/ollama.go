package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Endpoints supplies the Ollama endpoints for each request, so an admin
// change to the configured base URL takes effect on the next call.
type Endpoints interface {
	ChatEndpoint() string
	TagsEndpoint() string
}

// OllamaProvider talks to an Ollama server over its native HTTP API.
type OllamaProvider struct {
	endpoints Endpoints
	client    *http.Client
}

// NewOllamaProvider creates a provider reading its endpoints from
// endpoints (typically the config store). timeout bounds each request.
func NewOllamaProvider(endpoints Endpoints, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

// Chat sends the system prompt, prior turns and the new user message to
// /api/chat and returns the assistant reply.
func (p *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	msgs := make([]ollamaMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, turn := range req.History {
		msgs = append(msgs, ollamaMessage{Role: turn.Role, Content: turn.Content})
	}
	if req.UserMessage != "" {
		msgs = append(msgs, ollamaMessage{Role: "user", Content: req.UserMessage})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   false,
		Options:  req.Options,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoints.ChatEndpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}

	reply := strings.TrimSpace(parsed.Message.Content)
	if reply == "" {
		return "", fmt.Errorf("ollama returned empty reply for model %s", req.Model)
	}

	log.Printf("[Ollama] model=%s turns=%d took=%s", req.Model, len(msgs), time.Since(start).Round(time.Millisecond))
	return reply, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of locally available models via /api/tags.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoints.TagsEndpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags returned %d", resp.StatusCode)
	}

	var parsed ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
