package ws

import (
	"testing"

	"github.com/kiliankoe/gptwolf/internal/game"
)

func sampleState(phase game.Phase) game.State {
	return game.State{
		Phase: phase,
		Players: []game.Player{
			{ID: 0, Name: "Ann", Role: game.RoleEliminator, Strategy: game.StrategyConcealed, Alive: true},
			{ID: 1, Name: "Bo", Role: game.RoleSeeker, Alive: false},
			{ID: 2, Name: "Cy", Role: game.RoleBystander, Alive: true},
		},
		Log: []game.LogEntry{
			{Key: game.KeyNightBegins, Params: map[string]any{"day": 1}},
			{Key: game.KeySeekerChecks, Params: map[string]any{"targetName": "Ann", "targetRole": "Eliminator"}},
			{Key: game.KeyPlayerSpeech, RawSpeech: "hi", Speaker: &game.Speaker{Name: "Cy", Role: game.RoleBystander}},
		},
	}
}

func TestPublicStateHidesSecrets(t *testing.T) {
	st := sampleState(game.PhaseDayDiscussion)
	pub := PublicState(st)

	if pub.Players[0].Role != "" || pub.Players[0].Strategy != "" || pub.Players[2].Role != "" {
		t.Fatalf("living roles leaked: %+v", pub.Players)
	}
	if pub.Players[1].Role != game.RoleSeeker {
		t.Fatal("dead players' roles are public")
	}
	if len(pub.Log) != 2 {
		t.Fatalf("expected the seeker check to be dropped, got %d entries", len(pub.Log))
	}
	for _, e := range pub.Log {
		if e.Key == game.KeySeekerChecks {
			t.Fatal("seeker check leaked")
		}
		if e.Speaker != nil && e.Speaker.Role != "" {
			t.Fatal("speaker role leaked")
		}
	}

	// the host's copy is untouched
	if st.Players[0].Role != game.RoleEliminator || st.Log[2].Speaker.Role != game.RoleBystander {
		t.Fatal("PublicState mutated its input")
	}
}

func TestPublicStateRevealsAfterGameOver(t *testing.T) {
	pub := PublicState(sampleState(game.PhaseGameOver))
	if pub.Players[0].Role != game.RoleEliminator || len(pub.Log) != 3 {
		t.Fatalf("finished games should be fully revealed: %+v", pub)
	}
}
