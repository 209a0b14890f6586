package agent

import (
	"math/rand"
	"strings"

	"github.com/kiliankoe/gptwolf/internal/ai"
	"github.com/kiliankoe/gptwolf/internal/config"
	"github.com/kiliankoe/gptwolf/internal/game"
)

// NewProvider returns the decision provider named by cfg.DefaultProvider.
// "random" needs no network; anything else is a completion backend.
func NewProvider(cfg config.Config, rng *rand.Rand) (game.DecisionProvider, error) {
	if strings.EqualFold(cfg.DefaultProvider, "random") {
		return NewRandom(rng), nil
	}
	client, err := ai.New(ai.Config{
		Provider:      cfg.DefaultProvider,
		OpenAIKey:     cfg.OpenAIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OllamaHost:    cfg.OllamaHost,
	})
	if err != nil {
		return nil, err
	}
	return Provider{Client: client, Model: cfg.DefaultModel, SystemPrompt: cfg.SystemPrompt}, nil
}

// Options builds session options for one game. seed drives both role
// assignment and the random provider, so a fixed seed replays the same game
// when the backend is "random".
func Options(cfg config.Config, seed int64) (game.Options, error) {
	prov, err := NewProvider(cfg, rand.New(rand.NewSource(seed+1)))
	if err != nil {
		return game.Options{}, err
	}
	return game.Options{
		Provider:        prov,
		Rand:            rand.New(rand.NewSource(seed)),
		DecisionTimeout: cfg.DecisionTimeout,
		ContextWindow:   cfg.ContextWindow,
	}, nil
}
