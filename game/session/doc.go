// Package session provides the shared game-state store for the cup game
// server.
//
// The session package implements:
//   - A single mutex-guarded GameState shared by all connections
//   - Atomic join/apply/leave/reset operations
//   - Monotonically increasing player IDs that are never reused
//   - Per-recipient redacted snapshots
//
// Concurrency:
//
// Store is the single point of serialization for all state mutations.
// Every operation acquires the lock, manipulates data, and releases it
// before any network I/O happens; callers receive deep copies and never
// a reference into the live state. Holding the lock across a blocking
// send is therefore impossible by construction.
//
// Usage:
//
//	store, err := session.NewStore(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	player, outcome, err := store.Join("alice", "127.0.0.1:51000")
//	snapshot := store.SnapshotFor(player.ID)
package session
