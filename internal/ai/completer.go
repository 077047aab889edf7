// Package ai wraps the LLM providers used to summarize articles and classify
// the sentiment of mentions.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
	// Schema is a JSON schema for providers with structured output.
	Schema string
}

// Completer is implemented by every LLM provider client.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Default models per provider, used when LLM_MODEL is empty.
const (
	DefaultOllamaModel    = "llama3.1"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

// NewCompleter builds the client selected by cfg.Provider. Callers should
// close the result when it implements io.Closer.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	model := strings.TrimSpace(cfg.Model)
	switch cfg.Provider {
	case "ollama":
		if model == "" {
			model = DefaultOllamaModel
		}
		return NewOllamaClient(cfg.OllamaHost, model, cfg.Timeout), nil
	case "openai":
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.APIKey, model, cfg.MaxTokens, cfg.Timeout), nil
	case "gemini":
		if model == "" {
			model = DefaultGeminiModel
		}
		return NewGeminiClient(ctx, cfg.APIKey, model, cfg.MaxTokens)
	case "anthropic":
		if model == "" {
			model = DefaultAnthropicModel
		}
		return NewAnthropicClient(cfg.APIKey, model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}
