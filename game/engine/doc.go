// Package engine provides the core turn-rule logic for the cup game.
//
// The engine package implements the game state machine:
//   - Phase transitions (Waiting → Active → Finished → reset)
//   - Strict round-robin turn order over join order
//   - The hide/guess round: the hider commits a secret cup, the guesser
//     attempts a match, scores accumulate toward a win threshold
//   - Role rotation between hider and guesser on a fixed period
//   - Turn-pointer repair when a player leaves mid-game
//
// Core Types:
//
// Engine owns one GameState and applies validated actions to it.
// GameState is the single authoritative state; Player and MoveRecord are
// its building blocks. GameConfig defines the rules (cup count, minimum
// players, win score, role-swap period) loaded from JSON files.
//
// The engine performs no I/O and no locking. Callers (the session store)
// serialize access and decide what to do with the returned Outcome.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	player, _ := eng.Join(1, "alice", "127.0.0.1:51000")
//	outcome, err := eng.Apply(player.ID, engine.Action{Kind: engine.ActionHide, Position: 2})
//
// Rejections:
//
// Invalid actions return one of the sentinel errors (ErrNotYourTurn,
// ErrWrongRole, ErrPhase, ErrBadPosition, ErrNoSuchPlayer) and leave the
// state completely unchanged.
package engine
