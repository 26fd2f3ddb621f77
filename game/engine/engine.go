package engine

import (
	"errors"
	"fmt"
	"time"
)

// Rule rejections. They leave the state unchanged and are reported to
// the offending player only; no other player is affected.
var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrWrongRole     = errors.New("your role cannot perform this action")
	ErrPhase         = errors.New("action not valid in the current phase")
	ErrBadPosition   = errors.New("position out of range")
	ErrNoSuchPlayer  = errors.New("no such player")
	ErrUnknownAction = errors.New("unknown action")
	ErrNothingHidden = errors.New("nothing has been hidden yet")
)

// Engine applies validated turn events to a single GameState. It is not
// safe for concurrent use; the session store serializes access.
type Engine struct {
	state  *GameState
	config *GameConfig
}

// NewEngine creates an engine with the provided configuration
func NewEngine(config *GameConfig) (*Engine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return &Engine{
		config: config,
		state:  newState(config),
	}, nil
}

// NewEngineWithDefaults creates an engine with the default configuration
func NewEngineWithDefaults() *Engine {
	eng, err := NewEngine(DefaultConfig())
	if err != nil {
		// The default configuration always validates.
		panic(err)
	}
	return eng
}

func newState(config *GameConfig) *GameState {
	return &GameState{
		Phase:      PhaseWaiting,
		Players:    []Player{},
		Moves:      []MoveRecord{},
		Cups:       config.Cups,
		ConfigName: config.Name,
	}
}

// State returns the current game state
func (e *Engine) State() *GameState {
	return e.state
}

// Config returns the active game configuration
func (e *Engine) Config() *GameConfig {
	return e.config
}

// Join appends a player with the given pre-assigned ID. The first two
// joiners take the hider and guesser roles; later joiners participate in
// the turn rotation without a role. Reaching the configured minimum
// while Waiting starts the game with the hider's turn.
func (e *Engine) Join(id int, username, addr string) (Player, Outcome) {
	role := RoleNone
	if e.playerWithRole(RoleHider) == nil {
		role = RoleHider
	} else if e.playerWithRole(RoleGuesser) == nil {
		role = RoleGuesser
	}

	player := Player{ID: id, Username: username, Addr: addr, Role: role}
	e.state.Players = append(e.state.Players, player)

	out := Outcome{Kind: OutcomeInfo}
	if e.state.Phase == PhaseWaiting {
		if len(e.state.Players) >= e.config.MinPlayers {
			e.state.Phase = PhaseActive
			e.ensureRoles()
			e.state.Turn = e.playerWithRole(RoleHider).ID
			out.Text = fmt.Sprintf(e.config.Messages.GameStart, e.state.Turn)
		} else {
			out.Text = e.config.Messages.Waiting
		}
	}
	return player, out
}

// Apply validates and executes one action for the given player. On
// rejection the state is completely unchanged.
func (e *Engine) Apply(playerID int, act Action) (Outcome, error) {
	player := e.state.PlayerByID(playerID)
	if player == nil {
		return Outcome{}, ErrNoSuchPlayer
	}
	switch act.Kind {
	case ActionHide, ActionGuess, ActionMove:
	default:
		return Outcome{}, ErrUnknownAction
	}
	if e.state.Phase != PhaseActive {
		return Outcome{}, ErrPhase
	}
	if playerID != e.state.Turn {
		return Outcome{}, ErrNotYourTurn
	}
	if act.Position < 1 || act.Position > e.config.Cups {
		return Outcome{}, ErrBadPosition
	}

	switch act.Kind {
	case ActionHide:
		return e.applyHide(player, act.Position)
	case ActionGuess:
		return e.applyGuess(player, act.Position)
	default:
		return e.applyMove(player, act.Position)
	}
}

func (e *Engine) applyHide(player *Player, pos int) (Outcome, error) {
	if player.Role != RoleHider {
		return Outcome{}, ErrWrongRole
	}

	e.state.Secret = pos
	e.record(player.ID, ActionHide, pos, false)

	// The guesser answers next; fall back to plain rotation if the
	// guesser seat is somehow vacant.
	if guesser := e.playerWithRole(RoleGuesser); guesser != nil {
		e.state.Turn = guesser.ID
		e.state.TurnCount++
	} else {
		e.advanceTurn()
	}

	return Outcome{Kind: OutcomeInfo, Text: fmt.Sprintf(e.config.Messages.Hidden, player.ID)}, nil
}

func (e *Engine) applyGuess(player *Player, pos int) (Outcome, error) {
	if player.Role != RoleGuesser {
		return Outcome{}, ErrWrongRole
	}
	if e.state.Secret == 0 {
		return Outcome{}, ErrNothingHidden
	}

	correct := pos == e.state.Secret
	e.state.Secret = 0
	e.record(player.ID, ActionGuess, pos, correct)

	out := Outcome{Kind: OutcomeIncorrectGuess, Text: fmt.Sprintf(e.config.Messages.IncorrectGuess, player.ID)}
	if correct {
		player.Score++
		out = Outcome{Kind: OutcomeCorrectGuess, Text: fmt.Sprintf(e.config.Messages.CorrectGuess, player.ID)}
	}

	if player.Score >= e.config.WinScore {
		e.state.Phase = PhaseFinished
		return Outcome{
			Kind:   OutcomeWinner,
			Winner: player.ID,
			Text:   fmt.Sprintf(e.config.Messages.Winner, player.ID),
		}, nil
	}

	if e.swapDue() {
		e.swapRoles()
		hider := e.playerWithRole(RoleHider)
		e.state.Turn = hider.ID
		e.state.TurnCount++
		out.Text += " " + fmt.Sprintf(e.config.Messages.RolesSwapped, hider.ID)
	} else {
		e.advanceTurn()
	}
	return out, nil
}

func (e *Engine) applyMove(player *Player, pos int) (Outcome, error) {
	e.record(player.ID, ActionMove, pos, false)
	e.advanceTurn()
	return Outcome{Kind: OutcomeInfo, Text: fmt.Sprintf("Player %d moved to position %d", player.ID, pos)}, nil
}

// Leave removes a player and repairs the turn pointer. Returns false if
// the player was not in the game. Dropping below the configured minimum
// forces the phase back to Waiting.
func (e *Engine) Leave(playerID int) bool {
	idx := -1
	for i := range e.state.Players {
		if e.state.Players[i].ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	wasTurn := e.state.Turn == playerID
	wasHider := e.state.Players[idx].Role == RoleHider
	e.state.Players = append(e.state.Players[:idx], e.state.Players[idx+1:]...)

	if len(e.state.Players) == 0 {
		e.state.Phase = PhaseWaiting
		e.state.Turn = 0
		e.state.Secret = 0
		return true
	}

	if wasTurn {
		// The next surviving player in join order takes the turn.
		e.state.Turn = e.state.Players[idx%len(e.state.Players)].ID
	}
	if wasHider {
		// The departed hider takes its secret with it.
		e.state.Secret = 0
	}
	if len(e.state.Players) < e.config.MinPlayers && e.state.Phase == PhaseActive {
		e.state.Phase = PhaseWaiting
	}
	e.ensureRoles()
	if wasHider && e.state.Phase == PhaseActive {
		// The secret left with the hider, so the round restarts with a
		// fresh hide; the replacement hider moves next.
		if hider := e.playerWithRole(RoleHider); hider != nil {
			e.state.Turn = hider.ID
		}
	}
	return true
}

// Reset starts a fresh game with the current players: scores and the
// action log are cleared, roles keep their current assignment, and the
// hider moves first. With fewer players than the minimum the game waits.
func (e *Engine) Reset() Outcome {
	for i := range e.state.Players {
		e.state.Players[i].Score = 0
	}
	e.state.Secret = 0
	e.state.Moves = []MoveRecord{}
	e.state.TurnCount = 0
	e.ensureRoles()

	if len(e.state.Players) >= e.config.MinPlayers {
		e.state.Phase = PhaseActive
		e.state.Turn = e.playerWithRole(RoleHider).ID
		return Outcome{Kind: OutcomeInfo, Text: fmt.Sprintf(e.config.Messages.GameStart, e.state.Turn)}
	}

	e.state.Phase = PhaseWaiting
	e.state.Turn = 0
	return Outcome{Kind: OutcomeInfo, Text: e.config.Messages.Waiting}
}

// advanceTurn moves the turn pointer to the next player in join order.
func (e *Engine) advanceTurn() {
	n := len(e.state.Players)
	if n == 0 {
		e.state.Turn = 0
		return
	}
	idx := 0
	for i := range e.state.Players {
		if e.state.Players[i].ID == e.state.Turn {
			idx = i
			break
		}
	}
	e.state.Turn = e.state.Players[(idx+1)%n].ID
	e.state.TurnCount++
}

// swapDue reports whether the configured role rotation period elapsed
// with the guess that was just recorded.
func (e *Engine) swapDue() bool {
	if e.config.RoleSwapEvery <= 0 {
		return false
	}
	guesses := 0
	for i := range e.state.Moves {
		if e.state.Moves[i].Action == string(ActionGuess) {
			guesses++
		}
	}
	return guesses%e.config.RoleSwapEvery == 0
}

func (e *Engine) swapRoles() {
	hider := e.playerWithRole(RoleHider)
	guesser := e.playerWithRole(RoleGuesser)
	if hider == nil || guesser == nil {
		return
	}
	hider.Role = RoleGuesser
	guesser.Role = RoleHider
}

// ensureRoles guarantees a hider exists, and a guesser too when at least
// two players are present, preserving existing assignments.
func (e *Engine) ensureRoles() {
	if len(e.state.Players) == 0 {
		return
	}
	if e.playerWithRole(RoleHider) == nil {
		for i := range e.state.Players {
			if e.state.Players[i].Role != RoleGuesser {
				e.state.Players[i].Role = RoleHider
				break
			}
		}
	}
	if e.playerWithRole(RoleGuesser) == nil && len(e.state.Players) >= 2 {
		for i := range e.state.Players {
			if e.state.Players[i].Role != RoleHider {
				e.state.Players[i].Role = RoleGuesser
				break
			}
		}
	}
}

func (e *Engine) playerWithRole(role Role) *Player {
	for i := range e.state.Players {
		if e.state.Players[i].Role == role {
			return &e.state.Players[i]
		}
	}
	return nil
}

func (e *Engine) record(playerID int, kind ActionKind, pos int, correct bool) {
	e.state.Moves = append(e.state.Moves, MoveRecord{
		MoveNumber: len(e.state.Moves) + 1,
		PlayerID:   playerID,
		Action:     string(kind),
		Position:   pos,
		Correct:    correct,
		Timestamp:  time.Now().Unix(),
	})
}
