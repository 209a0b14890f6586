package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiliankoe/gptwolf/internal/ai/ollama"
	"github.com/kiliankoe/gptwolf/internal/ai/openai"
)

type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}

type Config struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaHost    string
}

// New returns the completion client named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	case "ollama":
		return ollama.New(cfg.OllamaHost), nil
	}
	return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
}
