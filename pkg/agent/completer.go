package agent

import (
	"context"
	"fmt"
)

// Completer wraps an LLM provider as a one-shot prompt-to-text capability.
type Completer struct {
	provider LLMProvider
	model    string
}

// NewCompleter creates a one-shot completer on the given provider and model.
func NewCompleter(provider LLMProvider, model string) (*Completer, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	return &Completer{provider: provider, model: model}, nil
}

// Complete sends a single prompt and returns the model's text response.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	response, err := c.provider.Call(ctx, LLMRequest{
		Model:     c.model,
		Messages:  []Message{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return response.Content, nil
}
