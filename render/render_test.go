package render

import (
	"strings"
	"testing"

	"cupgame-server/game/engine"
)

func sampleState() *engine.GameState {
	return &engine.GameState{
		Phase: engine.PhaseActive,
		Players: []engine.Player{
			{ID: 1, Username: "alice", Role: engine.RoleHider, Score: 2},
			{ID: 2, Username: "bob", Role: engine.RoleGuesser, Score: 1},
		},
		Turn:       1,
		Cups:       3,
		ConfigName: "classic",
	}
}

func TestStateMarksTurnAndSelf(t *testing.T) {
	out := State(sampleState(), 2)

	if !strings.Contains(out, "classic") {
		t.Errorf("Expected the game name in the header, got:\n%s", out)
	}
	if !strings.Contains(out, "* Player 1") {
		t.Errorf("Expected the turn marker on player 1, got:\n%s", out)
	}
	if !strings.Contains(out, "(you)") {
		t.Errorf("Expected the viewer marked, got:\n%s", out)
	}
	if !strings.Contains(out, "Waiting for Player 1") {
		t.Errorf("Expected a waiting line for the other player's turn, got:\n%s", out)
	}
}

func TestStateAnnouncesOwnTurn(t *testing.T) {
	out := State(sampleState(), 1)
	if !strings.Contains(out, "Your turn!") {
		t.Errorf("Expected a your-turn prompt, got:\n%s", out)
	}
}

func TestStateWaitingPhase(t *testing.T) {
	state := sampleState()
	state.Phase = engine.PhaseWaiting
	state.Turn = 0

	out := State(state, 1)
	if !strings.Contains(out, "Waiting for players") {
		t.Errorf("Expected the waiting notice, got:\n%s", out)
	}
	if strings.Contains(out, "* Player") {
		t.Errorf("Expected no turn marker while waiting, got:\n%s", out)
	}
}

func TestStateNil(t *testing.T) {
	if out := State(nil, 1); !strings.Contains(out, "no state") {
		t.Errorf("Expected a placeholder for nil state, got %q", out)
	}
}

func TestCups(t *testing.T) {
	out := Cups(3, 2)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines of cups, got %d:\n%s", len(lines), out)
	}
	for i := 1; i <= 3; i++ {
		if !strings.Contains(lines[1], "/ "+string(rune('0'+i))+" \\") {
			t.Errorf("Expected cup %d numbered, got:\n%s", i, out)
		}
	}
	if strings.Count(lines[2], "(o)") != 1 {
		t.Errorf("Expected exactly one marked cup, got:\n%s", out)
	}

	// No marker leaks for redacted snapshots.
	if strings.Contains(Cups(3, 0), "(o)") {
		t.Error("Expected no ball drawn with marker 0")
	}
	if Cups(0, 0) != "" {
		t.Error("Expected no output for zero cups")
	}
}
