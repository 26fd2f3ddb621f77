package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cupgame-server/game/engine"
	"cupgame-server/game/session"
	"cupgame-server/protocol"
	"cupgame-server/server"
)

func startEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := session.NewStore(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	ts := httptest.NewServer(NewEndpoint(server.New(store, 0)))
	t.Cleanup(ts.Close)
	return ts
}

// wsClient speaks the newline-delimited protocol over a WebSocket
// connection, one frame per text message.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWS(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(m protocol.Message) {
	c.t.Helper()
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.t.Fatalf("NextWriter failed: %v", err)
	}
	if err := protocol.NewEncoder(w).Encode(m); err != nil {
		c.t.Fatalf("Encode failed: %v", err)
	}
	if err := w.Close(); err != nil {
		c.t.Fatalf("Writer close failed: %v", err)
	}
}

// recv reads messages until one of the wanted kind arrives.
func (c *wsClient) recv(want protocol.Kind) protocol.Message {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("ReadMessage while waiting for %q failed: %v", want, err)
		}
		dec := protocol.NewDecoder(strings.NewReader(string(data)))
		for {
			m, err := dec.Decode()
			if err != nil {
				break
			}
			if m.Type == want {
				return m
			}
		}
	}
}

func (c *wsClient) join(username string) int {
	c.t.Helper()
	c.send(protocol.Message{Type: protocol.KindJoin, Username: username})
	ack := c.recv(protocol.KindJoinAck)
	if ack.PlayerID == 0 {
		c.t.Fatalf("join_ack carried no player ID: %+v", ack)
	}
	return ack.PlayerID
}

func TestGameOverWebSocket(t *testing.T) {
	ts := startEndpoint(t)

	alice := dialWS(t, ts)
	bob := dialWS(t, ts)

	id1 := alice.join("alice")
	id2 := bob.join("bob")

	state := bob.recv(protocol.KindGameState)
	if state.State.Phase != engine.PhaseActive {
		t.Fatalf("Expected active phase, got %q", state.State.Phase)
	}
	if state.State.Turn != id1 {
		t.Fatalf("Expected player %d's turn, got %d", id1, state.State.Turn)
	}

	alice.send(protocol.Message{Type: protocol.KindHide, Position: 3})
	state = bob.recv(protocol.KindGameState)
	if state.State.Secret != 0 {
		t.Errorf("Secret leaked to the guesser over WebSocket: %d", state.State.Secret)
	}

	bob.send(protocol.Message{Type: protocol.KindGuess, Position: 3})
	state = bob.recv(protocol.KindGameState)
	if got := state.State.PlayerByID(id2).Score; got != 1 {
		t.Errorf("Expected score 1 after the correct guess, got %d", got)
	}
}

func TestSecondJoinerStartsGame(t *testing.T) {
	ts := startEndpoint(t)

	alice := dialWS(t, ts)
	alice.join("alice")
	msg := alice.recv(protocol.KindMessage)
	if msg.Text == "" {
		t.Error("Expected a waiting announcement for the first joiner")
	}

	bob := dialWS(t, ts)
	bob.join("bob")
	state := alice.recv(protocol.KindGameState)
	for state.State.Phase != engine.PhaseActive {
		state = alice.recv(protocol.KindGameState)
	}
	if len(state.State.Players) != 2 {
		t.Errorf("Expected 2 players, got %d", len(state.State.Players))
	}
}

func TestWebSocketDisconnectAnnounced(t *testing.T) {
	ts := startEndpoint(t)

	alice := dialWS(t, ts)
	bob := dialWS(t, ts)
	id1 := alice.join("alice")
	bob.join("bob")

	alice.conn.Close()

	seen := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !seen {
		m := bob.recv(protocol.KindMessage)
		if strings.Contains(m.Text, "left") {
			seen = true
		}
	}
	if !seen {
		t.Fatal("The disconnect was never announced")
	}

	state := bob.recv(protocol.KindGameState)
	if state.State.PlayerByID(id1) != nil {
		t.Error("Expected the departed player removed from the state")
	}
}

func TestMalformedWebSocketFrame(t *testing.T) {
	ts := startEndpoint(t)
	client := dialWS(t, ts)

	if err := client.conn.WriteMessage(websocket.TextMessage, []byte("not json\n")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	errMsg := client.recv(protocol.KindError)
	if !strings.Contains(errMsg.Text, "malformed") {
		t.Errorf("Expected a malformed frame notice, got %q", errMsg.Text)
	}

	if id := client.join("alice"); id == 0 {
		t.Error("Expected a successful join after the dropped frame")
	}
}
