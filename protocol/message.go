package protocol

import "cupgame-server/game/engine"

// Kind discriminates the message variants of the wire protocol.
type Kind string

const (
	// Client → server
	KindJoin  Kind = "join"
	KindHide  Kind = "hide"
	KindGuess Kind = "guess"
	KindMove  Kind = "move"
	KindChat  Kind = "chat"
	KindQuit  Kind = "quit"

	// Server → client
	KindJoinAck   Kind = "join_ack"
	KindQuitAck   Kind = "quit_ack"
	KindGameState Kind = "game_state"
	KindMessage   Kind = "message"
	KindError     Kind = "error"
)

// Message is one frame of the wire protocol. The Type field selects the
// variant; the remaining fields are populated per kind and omitted
// otherwise. Every message is self-contained: game_state frames carry a
// full snapshot, never a delta.
type Message struct {
	Type     Kind              `json:"type"`
	Username string            `json:"username,omitempty"`
	PlayerID int               `json:"player_id,omitempty"`
	Position int               `json:"position,omitempty"`
	Text     string            `json:"message,omitempty"`
	State    *engine.GameState `json:"state,omitempty"`
}

// Info builds an informational server → client message.
func Info(text string) Message {
	return Message{Type: KindMessage, Text: text}
}

// Error builds an error server → client message explaining a rejected action.
func Error(text string) Message {
	return Message{Type: KindError, Text: text}
}

// StateSnapshot builds an authoritative game_state broadcast frame.
func StateSnapshot(state *engine.GameState) Message {
	return Message{Type: KindGameState, State: state}
}
