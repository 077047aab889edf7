package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// AnthropicClient calls the Anthropic messages API through llmkit.
type AnthropicClient struct {
	apiKey    string
	model     string
	maxTokens int
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(apiKey, model string, maxTokens int) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey, model: model, maxTokens: maxTokens}
}

type anthropicResult struct {
	text string
	err  error
}

// Complete implements Completer. llmkit takes no context, so the call runs in
// a goroutine and ctx only bounds the wait: after cancellation the request
// itself runs on until llmkit's HTTP client gives up, and its result is
// discarded.
func (c *AnthropicClient) Complete(ctx context.Context, r Request) (string, error) {
	settings := types.RequestSettings{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: r.Temperature,
	}

	done := make(chan anthropicResult, 1)
	go func() {
		resp, err := anthropic.PromptWithSettings(r.System, r.Prompt, r.Schema, c.apiKey, settings)
		if err != nil {
			done <- anthropicResult{err: fmt.Errorf("anthropic: prompt: %w", err)}
			return
		}
		if len(resp.Content) == 0 {
			done <- anthropicResult{err: fmt.Errorf("anthropic: no content in response")}
			return
		}
		done <- anthropicResult{text: strings.TrimSpace(resp.Content[0].Text)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err == nil && res.text == "" {
			return "", fmt.Errorf("anthropic: empty response")
		}
		return res.text, res.err
	}
}
