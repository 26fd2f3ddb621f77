package session

import (
	"errors"
	"sync"

	"cupgame-server/game/engine"
)

var (
	// ErrGameFull is returned by Join when the configured player cap is reached.
	ErrGameFull = errors.New("game is full")

	// ErrServerFull is returned by Join when the server-level join limit
	// is reached.
	ErrServerFull = errors.New("server is full")
)

// Store wraps one game engine behind a mutex. It is the only shared
// mutable resource of the server; all reads used for decision-making go
// through its lock-scoped operations. Critical sections contain data
// manipulation only, never I/O.
type Store struct {
	mu        sync.Mutex
	eng       *engine.Engine
	nextID    int
	joinLimit int // 0 means unlimited
}

// NewStore creates a store running the given configuration
func NewStore(config *engine.GameConfig) (*Store, error) {
	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}
	return &Store{eng: eng}, nil
}

// Config returns the active game configuration
func (s *Store) Config() *engine.GameConfig {
	return s.eng.Config()
}

// SetJoinLimit caps the number of simultaneously joined players on top
// of the game rules' own MaxPlayers. The check happens inside Join's
// critical section, so concurrent joins cannot slip past the limit.
// 0 disables the cap.
func (s *Store) SetJoinLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinLimit = n
}

// Join adds a player, assigns the next ID and a role per game-rule
// policy, and returns the created player. IDs increase monotonically and
// are never reused, even after the player leaves.
func (s *Store) Join(username, addr string) (engine.Player, engine.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.eng.Config()
	if cfg.MaxPlayers > 0 && len(s.eng.State().Players) >= cfg.MaxPlayers {
		return engine.Player{}, engine.Outcome{}, ErrGameFull
	}
	if s.joinLimit > 0 && len(s.eng.State().Players) >= s.joinLimit {
		return engine.Player{}, engine.Outcome{}, ErrServerFull
	}

	s.nextID++
	player, outcome := s.eng.Join(s.nextID, username, addr)
	return player, outcome, nil
}

// Apply delegates one action to the turn-rule engine. The resulting
// state change is committed atomically; on rejection the state is
// unchanged and the rejection is returned.
func (s *Store) Apply(playerID int, act engine.Action) (engine.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Apply(playerID, act)
}

// Leave removes a player and repairs the turn pointer. Removing an
// unknown player is a no-op.
func (s *Store) Leave(playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Leave(playerID)
}

// Reset starts a fresh game with the current players
func (s *Store) Reset() engine.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Reset()
}

// SnapshotFor returns a deep copy of the state tailored to the given
// viewer: the secret is included only for the current hider.
func (s *Store) SnapshotFor(playerID int) *engine.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.State().RedactedCopy(playerID)
}

// Snapshot returns an unredacted deep copy of the state. Callers that
// relay state to players must use SnapshotFor instead.
func (s *Store) Snapshot() *engine.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.State().Clone()
}

// PlayerCount returns the number of currently registered players
func (s *Store) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.eng.State().Players)
}
