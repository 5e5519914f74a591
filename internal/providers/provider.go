package providers

import (
	"context"
	"fmt"
)

// GenerateRequest contains the prompts sent to a model backend.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// GenerateResponse contains the raw model output.
type GenerateResponse struct {
	Content    string
	TokensUsed int
}

// Generator is the model backend abstraction.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}

// Known backend names accepted by New.
var Known = []string{"anthropic", "openai", "ollama"}

// New creates a Generator by backend name.
func New(provider, model string) (Generator, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "ollama", "lmstudio":
		return NewOllama(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
