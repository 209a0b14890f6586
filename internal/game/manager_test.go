package game

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testOptions(seed int64) Options {
	return Options{
		Provider: DecisionProviderFunc(func(Player) Agent { return &fakeAgent{vote: voteFirstOther} }),
		Rand:     rand.New(rand.NewSource(seed)),
	}
}

func TestNewRoomManager(t *testing.T) {
	rm := NewRoomManager(false)
	if rm.sessions == nil {
		t.Fatal("sessions map should be initialized")
	}
	if code, room := rm.Active(); code != "" || room != nil {
		t.Fatal("active session should be empty initially")
	}
}

func TestCreateSession(t *testing.T) {
	rm := NewRoomManager(false)
	code, hostToken, err := rm.CreateSession(testOptions(1))
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	if len(code) != 5 {
		t.Fatalf("expected a 5 character code, got %q", code)
	}
	if hostToken == "" {
		t.Fatal("host token should not be empty")
	}

	room, err := rm.Get(code)
	if err != nil {
		t.Fatalf("should be able to retrieve created session: %v", err)
	}
	if room.Code != code || room.HostToken != hostToken {
		t.Fatalf("unexpected room %s/%s", room.Code, room.HostToken)
	}
	if room.Phase() != PhaseSetup {
		t.Fatalf("expected phase %s, got %s", PhaseSetup, room.Phase())
	}
	if active, _ := rm.Active(); active != code {
		t.Fatalf("expected %s to be active, got %s", code, active)
	}

	other, _, err := rm.CreateSession(testOptions(2))
	if err != nil {
		t.Fatalf("should be able to create a second session: %v", err)
	}
	if other == code {
		t.Fatal("session codes should be unique")
	}

	if _, err := rm.Get("NOPE1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRoomAuthorization(t *testing.T) {
	rm := NewRoomManager(false)
	code, hostToken, _ := rm.CreateSession(testOptions(3))
	room, _ := rm.Get(code)

	if err := room.Setup("invalid-token", GameConfig{EliminatorCount: 1, BystanderCount: 2}); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost with invalid token, got %v", err)
	}
	if err := room.Reset("invalid-token"); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost with invalid token, got %v", err)
	}
	if err := room.Setup(hostToken, GameConfig{EliminatorCount: 0, BystanderCount: 2}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if room.Phase() != PhaseSetup {
		t.Fatalf("rejected setup should leave the room in %s, got %s", PhaseSetup, room.Phase())
	}
}

func TestRoomRunsGameToCompletion(t *testing.T) {
	rm := NewRoomManager(false)
	code, hostToken, _ := rm.CreateSession(testOptions(4))
	room, _ := rm.Get(code)
	over := make(chan State, 1)
	room.OnGameOver = func(r *Room) { over <- r.State() }

	if err := room.Setup(hostToken, GameConfig{EliminatorCount: 2, BystanderCount: 5}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	select {
	case st := <-over:
		if st.Phase != PhaseGameOver || st.Winner == WinnerNone {
			t.Fatalf("expected a finished game, got %s winner=%q", st.Phase, st.Winner)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("game did not finish")
	}

	if err := room.Setup(hostToken, GameConfig{EliminatorCount: 1, BystanderCount: 2}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("setup over a finished game should fail with ErrInvalidPhase, got %v", err)
	}
	if err := room.Reset(hostToken); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if room.Phase() != PhaseSetup || len(room.Roster()) != 0 {
		t.Fatalf("reset should return to an empty %s, got %s", PhaseSetup, room.Phase())
	}
}

func TestDeleteRoom(t *testing.T) {
	rm := NewRoomManager(false)
	code, _, _ := rm.CreateSession(testOptions(5))
	rm.Delete(code)
	if _, err := rm.Get(code); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected deleted room to be gone, got %v", err)
	}
	if active, _ := rm.Active(); active != "" {
		t.Fatalf("deleting the active room should clear it, got %s", active)
	}
}

func TestExportSession(t *testing.T) {
	rm := NewRoomManager(false)
	code, _, _ := rm.CreateSession(testOptions(6))
	room, _ := rm.Get(code)
	if err := room.SetupGame(GameConfig{EliminatorCount: 1, BystanderCount: 3}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	file := filepath.Join(t.TempDir(), "nested", "games.txt")
	if err := ExportSession(room, file); err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	if err := ExportSession(room, file); err != nil {
		t.Fatalf("second export failed: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	out := string(data)
	if strings.Count(out, "Session "+code) != 2 {
		t.Fatalf("expected two appended transcripts, got:\n%s", out)
	}
	for _, p := range room.Roster() {
		if !strings.Contains(out, "- "+p.Name+" ("+string(p.Role)) {
			t.Fatalf("transcript is missing %s:\n%s", p.Name, out)
		}
	}
	if !strings.Contains(out, "No winner yet (phase Night, day 1)") {
		t.Fatalf("transcript should report the running game:\n%s", out)
	}
}

func TestSingleSessionEvictsPreviousRoom(t *testing.T) {
	rm := NewRoomManager(true)
	first, hostToken, _ := rm.CreateSession(testOptions(7))
	room, _ := rm.Get(first)
	if err := room.SetupGame(GameConfig{EliminatorCount: 1, BystanderCount: 3}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	second, _, err := rm.CreateSession(testOptions(8))
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	if _, err := rm.Get(first); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected the first room to be evicted, got %v", err)
	}
	if active, r := rm.Active(); active != second || r == nil {
		t.Fatalf("expected %s to be active, got %s", second, active)
	}
	if room.Phase() != PhaseSetup || len(room.Roster()) != 0 {
		t.Fatalf("evicted room should be reset, got %s", room.Phase())
	}
	if err := room.Reset(hostToken); err != nil {
		t.Fatalf("evicted room keeps its host token: %v", err)
	}
}

func TestMultiSessionKeepsRooms(t *testing.T) {
	rm := NewRoomManager(false)
	first, _, _ := rm.CreateSession(testOptions(9))
	second, _, _ := rm.CreateSession(testOptions(10))
	for _, code := range []string{first, second} {
		if _, err := rm.Get(code); err != nil {
			t.Fatalf("room %s should still exist: %v", code, err)
		}
	}
	if active, _ := rm.Active(); active != second {
		t.Fatalf("expected %s to be active, got %s", second, active)
	}
}
