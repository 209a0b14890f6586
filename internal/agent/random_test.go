package agent

import (
	"context"
	"math/rand"
	"testing"

	"github.com/kiliankoe/gptwolf/internal/config"
	"github.com/kiliankoe/gptwolf/internal/game"
)

func TestRandomPicksLegalTargets(t *testing.T) {
	r := NewRandom(rand.New(rand.NewSource(1)))
	self := game.Player{ID: 0, Name: "Ann", Role: game.RoleEliminator, Alive: true}
	req := testRequest(self, 1)
	elim := r.Bind(self)
	for i := 0; i < 50; i++ {
		target, err := elim.DecideNightAction(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target != 2 && target != 4 {
			t.Fatalf("illegal night target %d", target)
		}
		vote, _ := elim.DecideVote(context.Background(), req)
		if vote == self.ID || vote == 3 {
			t.Fatalf("illegal vote %d", vote)
		}
	}
	by := r.Bind(game.Player{ID: 2, Role: game.RoleBystander})
	if target, _ := by.DecideNightAction(context.Background(), req); target != game.NoTarget {
		t.Fatalf("bystander should not act at night, got %d", target)
	}
	text, err := by.DecideStatement(context.Background(), req)
	if err != nil || text == "" {
		t.Fatalf("expected a canned statement, got %q (err %v)", text, err)
	}
}

func play(t *testing.T, seed int64) []game.LogEntry {
	t.Helper()
	opts, err := Options(config.Config{DefaultProvider: "random"}, seed)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	s := game.NewSession(opts)
	if err := s.SetupGame(game.GameConfig{EliminatorCount: 2, BystanderCount: 5}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.Phase() != game.PhaseGameOver || s.Winner() == game.WinnerNone {
		t.Fatalf("expected a finished game, got %s winner=%q", s.Phase(), s.Winner())
	}
	return s.Log()
}

func TestRandomGameIsReproducible(t *testing.T) {
	a, b := play(t, 42), play(t, 42)
	if len(a) != len(b) {
		t.Fatalf("same seed produced %d and %d entries", len(a), len(b))
	}
	for i := range a {
		if game.RenderEntry(a[i]) != game.RenderEntry(b[i]) {
			t.Fatalf("entry %d differs: %q vs %q", i, game.RenderEntry(a[i]), game.RenderEntry(b[i]))
		}
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(config.Config{DefaultProvider: "Random"}, nil); err != nil {
		t.Fatalf("random provider: %v", err)
	}
	p, err := NewProvider(config.Config{DefaultProvider: "ollama", DefaultModel: "llama3", OllamaHost: "http://localhost:11434"}, nil)
	if err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if lp, ok := p.(Provider); !ok || lp.Model != "llama3" {
		t.Fatalf("expected completion provider for llama3, got %#v", p)
	}
	if _, err := NewProvider(config.Config{DefaultProvider: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}
