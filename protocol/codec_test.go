package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cupgame-server/game/engine"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	messages := []Message{
		{Type: KindJoin, Username: "alice"},
		{Type: KindHide, Position: 2},
		{Type: KindGuess, Position: 3},
		{Type: KindMove, Position: 1},
		{Type: KindChat, Text: "good game"},
		{Type: KindQuit},
		{Type: KindJoinAck, PlayerID: 1, Text: "Welcome, Player 1!"},
		{Type: KindQuitAck, Text: "Goodbye, Player 1!"},
		{Type: KindMessage, Text: "Player 2 joined"},
		{Type: KindError, Text: "not your turn"},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, m := range messages {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode(%v) failed: %v", m.Type, err)
		}
	}

	dec := NewDecoder(&buf)
	for i, want := range messages {
		got, err := dec.Decode()
		if err != nil {
			t.Fatalf("Decode frame %d failed: %v", i, err)
		}
		if got != want {
			t.Errorf("Frame %d: expected %+v, got %+v", i, want, got)
		}
	}

	if _, err := dec.Decode(); err != io.EOF {
		t.Errorf("Expected io.EOF after last frame, got %v", err)
	}
}

func TestEncodeStateSnapshot(t *testing.T) {
	state := &engine.GameState{
		Phase: engine.PhaseActive,
		Players: []engine.Player{
			{ID: 1, Username: "alice", Role: engine.RoleHider, Score: 2},
			{ID: 2, Username: "bob", Role: engine.RoleGuesser},
		},
		Turn:   1,
		Secret: 3,
		Cups:   3,
		Moves: []engine.MoveRecord{
			{MoveNumber: 1, PlayerID: 1, Action: "hide", Position: 3, Timestamp: time.Now().Unix()},
		},
		TurnCount: 1,
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(StateSnapshot(state)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Type != KindGameState {
		t.Fatalf("Expected type %q, got %q", KindGameState, got.Type)
	}
	if got.State == nil {
		t.Fatal("Expected a state snapshot, got nil")
	}
	if got.State.Secret != 3 {
		t.Errorf("Expected secret 3, got %d", got.State.Secret)
	}
	if len(got.State.Players) != 2 || got.State.Players[0].Username != "alice" {
		t.Errorf("Players did not survive the round trip: %+v", got.State.Players)
	}
	if len(got.State.Moves) != 1 || got.State.Moves[0].Position != 3 {
		t.Errorf("Move log did not survive the round trip: %+v", got.State.Moves)
	}
}

// chunkReader returns at most n bytes per Read call so the decoder sees
// frames split at arbitrary points.
type chunkReader struct {
	r io.Reader
	n int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.n {
		p = p[:c.n]
	}
	return c.r.Read(p)
}

func TestDecodePartialReads(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	want := []Message{
		{Type: KindJoin, Username: "alice"},
		{Type: KindMessage, Text: "a somewhat longer informational message"},
		{Type: KindGuess, Position: 2},
	}
	for _, m := range want {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	for _, chunk := range []int{1, 2, 7} {
		dec := NewDecoder(&chunkReader{r: bytes.NewReader(buf.Bytes()), n: chunk})
		for i, w := range want {
			got, err := dec.Decode()
			if err != nil {
				t.Fatalf("chunk=%d: Decode frame %d failed: %v", chunk, i, err)
			}
			if got != w {
				t.Errorf("chunk=%d frame %d: expected %+v, got %+v", chunk, i, w, got)
			}
		}
	}
}

func TestDecodeCoalescedFrames(t *testing.T) {
	// Three frames arriving in a single read.
	input := `{"type":"join","username":"alice"}` + "\n" +
		`{"type":"hide","position":1}` + "\n" +
		`{"type":"quit"}` + "\n"

	dec := NewDecoder(strings.NewReader(input))
	kinds := []Kind{KindJoin, KindHide, KindQuit}
	for i, want := range kinds {
		got, err := dec.Decode()
		if err != nil {
			t.Fatalf("Decode frame %d failed: %v", i, err)
		}
		if got.Type != want {
			t.Errorf("Frame %d: expected kind %q, got %q", i, want, got.Type)
		}
	}
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"type":"join","username":"alice"}` + "\n\n" + `{"type":"quit"}` + "\n"
	dec := NewDecoder(strings.NewReader(input))

	got, err := dec.Decode()
	if err != nil || got.Type != KindJoin {
		t.Fatalf("Expected join, got %v (err %v)", got.Type, err)
	}
	got, err = dec.Decode()
	if err != nil || got.Type != KindQuit {
		t.Fatalf("Expected quit, got %v (err %v)", got.Type, err)
	}
}

func TestDecodeTrailingUnterminatedFrame(t *testing.T) {
	// A peer that closes right after its final frame may omit the delimiter.
	dec := NewDecoder(strings.NewReader(`{"type":"quit"}`))
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Type != KindQuit {
		t.Errorf("Expected quit, got %q", got.Type)
	}
	if _, err := dec.Decode(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestDecodeMalformedFrameIsSkippable(t *testing.T) {
	input := `{"type":"join","username":"alice"}` + "\n" +
		`this is not json` + "\n" +
		`{"type":"guess","position":2}` + "\n"
	dec := NewDecoder(strings.NewReader(input))

	if got, err := dec.Decode(); err != nil || got.Type != KindJoin {
		t.Fatalf("Expected join, got %v (err %v)", got.Type, err)
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Expected ErrMalformedFrame, got %v", err)
	}
	// The stream must remain usable after a dropped frame.
	if got, err := dec.Decode(); err != nil || got.Type != KindGuess {
		t.Fatalf("Expected guess after dropped frame, got %v (err %v)", got.Type, err)
	}
}

func TestDecodeOversizedFrameDropped(t *testing.T) {
	// The frame is far larger than the decoder's internal buffer, so
	// the cap must trip mid-read, not after the line is buffered.
	oversized := `{"type":"chat","message":"` + strings.Repeat("x", maxFrameSize) + `"}` + "\n"
	input := oversized + `{"type":"quit"}` + "\n"
	dec := NewDecoder(strings.NewReader(input))

	if _, err := dec.Decode(); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Expected ErrMalformedFrame for oversized frame, got %v", err)
	}
	// The oversized frame is drained through its delimiter; the stream
	// stays usable.
	if got, err := dec.Decode(); err != nil || got.Type != KindQuit {
		t.Fatalf("Expected quit after dropped frame, got %v (err %v)", got.Type, err)
	}
	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("Expected EOF, got %v", err)
	}
}

func TestDecodeUnterminatedOversizedStream(t *testing.T) {
	// A peer streaming bytes with no delimiter at all ends the stream
	// without the decoder retaining more than one frame's worth.
	input := strings.Repeat("y", maxFrameSize+4096)
	dec := NewDecoder(strings.NewReader(input))

	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("Expected EOF for unterminated oversized stream, got %v", err)
	}
}

func TestDecodeTooManyBadFrames(t *testing.T) {
	input := "garbage one\ngarbage two\ngarbage three\n" + `{"type":"quit"}` + "\n"
	dec := NewDecoder(strings.NewReader(input))

	for i := 0; i < maxConsecutiveBadFrames-1; i++ {
		if _, err := dec.Decode(); !errors.Is(err, ErrMalformedFrame) {
			t.Fatalf("Frame %d: expected ErrMalformedFrame, got %v", i, err)
		}
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrTooManyBadFrames) {
		t.Fatalf("Expected ErrTooManyBadFrames on strike %d, got %v", maxConsecutiveBadFrames, err)
	}
}

func TestDecodeBadFrameCounterResets(t *testing.T) {
	input := "garbage\ngarbage\n" + `{"type":"chat","message":"hi"}` + "\n" + "garbage\ngarbage\n"
	dec := NewDecoder(strings.NewReader(input))

	for i := 0; i < 2; i++ {
		if _, err := dec.Decode(); !errors.Is(err, ErrMalformedFrame) {
			t.Fatalf("Expected ErrMalformedFrame, got %v", err)
		}
	}
	if got, err := dec.Decode(); err != nil || got.Type != KindChat {
		t.Fatalf("Expected chat, got %v (err %v)", got.Type, err)
	}
	// A good frame resets the strike count, so two more bad frames do
	// not terminate the stream.
	for i := 0; i < 2; i++ {
		if _, err := dec.Decode(); !errors.Is(err, ErrMalformedFrame) {
			t.Fatalf("Expected ErrMalformedFrame after reset, got %v", err)
		}
	}
}
