// Package render draws a received game-state snapshot as terminal text.
// It is pure presentation: it only reads the snapshot it is given.
package render

import (
	"fmt"
	"strings"

	"cupgame-server/game/engine"
)

// State renders a full snapshot for the given viewer.
func State(state *engine.GameState, selfID int) string {
	if state == nil {
		return "(no state received yet)\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s  Phase: %s\n", state.ConfigName, state.Phase)
	b.WriteString(Cups(state.Cups, state.Secret))

	for _, p := range state.Players {
		marker := " "
		if p.ID == state.Turn && state.Phase == engine.PhaseActive {
			marker = "*"
		}
		self := ""
		if p.ID == selfID {
			self = " (you)"
		}
		fmt.Fprintf(&b, "%s Player %d  %-10s %-8s score %d%s\n",
			marker, p.ID, p.Username, p.Role, p.Score, self)
	}

	switch {
	case state.Phase == engine.PhaseWaiting:
		b.WriteString("Waiting for players...\n")
	case state.Turn == selfID:
		b.WriteString("Your turn!\n")
	default:
		fmt.Fprintf(&b, "Waiting for Player %d...\n", state.Turn)
	}
	return b.String()
}

// Cups draws a row of numbered cups. A non-zero marker draws the hidden
// ball under that cup, so only redacted snapshots should reach here for
// guessing players.
func Cups(n, marker int) string {
	if n <= 0 {
		return ""
	}

	var top, mid, bottom strings.Builder
	for i := 1; i <= n; i++ {
		top.WriteString("  ___  ")
		mid.WriteString(fmt.Sprintf(" / %d \\ ", i))
		if i == marker {
			bottom.WriteString("/_(o)_\\")
		} else {
			bottom.WriteString("/_____\\")
		}
	}
	return top.String() + "\n" + mid.String() + "\n" + bottom.String() + "\n"
}
