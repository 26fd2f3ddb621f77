package engine

// Phase represents the coarse-grained session state
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Role represents a player's part in the current round
type Role string

const (
	RoleHider   Role = "hider"
	RoleGuesser Role = "guesser"
	RoleNone    Role = "none"
)

const (
	// Validation constants
	MinCups       = 2
	MaxCups       = 9
	MinWinScore   = 1
	MaxWinScore   = 100
	MinPlayersCap = 2
)

// Player is one participant in the game. IDs are assigned at join time,
// increase monotonically, and are never reused within a server's lifetime.
type Player struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Addr     string `json:"addr,omitempty"`
	Role     Role   `json:"role"`
	Score    int    `json:"score"`
}

// MoveRecord is a single entry in the append-only action log
type MoveRecord struct {
	MoveNumber int    `json:"move_number"`
	PlayerID   int    `json:"player_id"`
	Action     string `json:"action"` // "hide", "guess" or "move"
	Position   int    `json:"position,omitempty"`
	Correct    bool   `json:"correct,omitempty"` // set for guesses
	Timestamp  int64  `json:"timestamp"`
}

// GameState is the complete authoritative game state. Exactly one
// instance exists per running server; clients only ever observe copies.
//
// Players are ordered by join order, which is also the turn order. Turn
// holds the ID of the player whose action is currently valid, or 0 while
// no turn is defined (Waiting phase with no players).
type GameState struct {
	Phase      Phase        `json:"phase"`
	Players    []Player     `json:"players"`
	Turn       int          `json:"turn"`
	Secret     int          `json:"secret,omitempty"` // hidden cup, 0 when none committed
	Moves      []MoveRecord `json:"moves"`
	TurnCount  int          `json:"turn_count"`
	Cups       int          `json:"cups"`
	ConfigName string       `json:"config_name"`
}

// ActionKind discriminates the turn actions a player can submit
type ActionKind string

const (
	ActionHide  ActionKind = "hide"
	ActionGuess ActionKind = "guess"
	ActionMove  ActionKind = "move"
)

// Action is one validated turn event forwarded to the engine
type Action struct {
	Kind     ActionKind
	Position int
}

// OutcomeKind classifies the result of a successfully applied action
type OutcomeKind string

const (
	OutcomeInfo           OutcomeKind = "info"
	OutcomeCorrectGuess   OutcomeKind = "correct_guess"
	OutcomeIncorrectGuess OutcomeKind = "incorrect_guess"
	OutcomeWinner         OutcomeKind = "winner"
)

// Outcome describes what an accepted action produced. Text is the
// human-readable event line broadcast to all players; Winner is set only
// when Kind is OutcomeWinner.
type Outcome struct {
	Kind   OutcomeKind
	Text   string
	Winner int
}

// PlayerByID returns the player with the given ID, or nil.
func (s *GameState) PlayerByID(id int) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the state.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Players = append([]Player(nil), s.Players...)
	c.Moves = append([]MoveRecord(nil), s.Moves...)
	return &c
}

// RedactedCopy returns a deep copy safe to send to the given viewer. The
// secret, and the positions of hide records that would reveal it, are
// included only for the player currently holding the hider role.
func (s *GameState) RedactedCopy(viewerID int) *GameState {
	c := s.Clone()

	viewer := c.PlayerByID(viewerID)
	if viewer != nil && viewer.Role == RoleHider {
		return c
	}

	c.Secret = 0
	for i := range c.Moves {
		if c.Moves[i].Action == string(ActionHide) {
			c.Moves[i].Position = 0
		}
	}
	return c
}
