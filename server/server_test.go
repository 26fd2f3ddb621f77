package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"cupgame-server/game/engine"
	"cupgame-server/game/session"
	"cupgame-server/protocol"
)

// fakeConn records sent messages and can be switched to fail sends.
type fakeConn struct {
	mu     sync.Mutex
	sent   []protocol.Message
	fail   bool
	closed bool
}

func (c *fakeConn) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection gone")
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "10.0.0.1:1111" }

func (c *fakeConn) messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.sent...)
}

func (c *fakeConn) setFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *fakeConn) lastOfKind(kind protocol.Kind) (protocol.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].Type == kind {
			return c.sent[i], true
		}
	}
	return protocol.Message{}, false
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestServer(t *testing.T, maxClients int) *Server {
	t.Helper()
	store, err := session.NewStore(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return New(store, maxClients)
}

func join(t *testing.T, srv *Server, username string) (*Peer, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	p := srv.Accept(conn)
	srv.Dispatch(p, protocol.Message{Type: protocol.KindJoin, Username: username})
	if p.PlayerID() == 0 {
		t.Fatalf("Join for %q did not assign a player ID", username)
	}
	return p, conn
}

func TestJoinAcknowledged(t *testing.T) {
	srv := newTestServer(t, 0)
	p, conn := join(t, srv, "alice")

	ack, ok := conn.lastOfKind(protocol.KindJoinAck)
	if !ok {
		t.Fatal("Expected a join_ack")
	}
	if ack.PlayerID != p.PlayerID() {
		t.Errorf("Expected join_ack for player %d, got %d", p.PlayerID(), ack.PlayerID)
	}
	if !strings.Contains(ack.Text, fmt.Sprintf("%d", p.PlayerID())) {
		t.Errorf("Expected the welcome text to name the player, got %q", ack.Text)
	}
	if _, ok := conn.lastOfKind(protocol.KindGameState); !ok {
		t.Error("Expected a state broadcast after join")
	}
	if srv.Registry().Count() != 1 {
		t.Errorf("Expected 1 registered peer, got %d", srv.Registry().Count())
	}
}

func TestDoubleJoinRejected(t *testing.T) {
	srv := newTestServer(t, 0)
	p, conn := join(t, srv, "alice")

	before := p.PlayerID()
	srv.Dispatch(p, protocol.Message{Type: protocol.KindJoin, Username: "alice-again"})

	if p.PlayerID() != before {
		t.Errorf("Second join changed the player ID from %d to %d", before, p.PlayerID())
	}
	errMsg, ok := conn.lastOfKind(protocol.KindError)
	if !ok || !strings.Contains(errMsg.Text, "already joined") {
		t.Errorf("Expected an already joined error, got %+v", errMsg)
	}
}

func TestMaxClients(t *testing.T) {
	srv := newTestServer(t, 2)
	join(t, srv, "alice")
	join(t, srv, "bob")

	conn := &fakeConn{}
	p := srv.Accept(conn)
	srv.Dispatch(p, protocol.Message{Type: protocol.KindJoin, Username: "carol"})

	if p.PlayerID() != 0 {
		t.Errorf("Expected the join to be refused, player ID %d assigned", p.PlayerID())
	}
	errMsg, ok := conn.lastOfKind(protocol.KindError)
	if !ok || !strings.Contains(errMsg.Text, "full") {
		t.Errorf("Expected a server full error, got %+v", errMsg)
	}
}

func TestActionBeforeJoinRejected(t *testing.T) {
	srv := newTestServer(t, 0)
	conn := &fakeConn{}
	p := srv.Accept(conn)

	srv.Dispatch(p, protocol.Message{Type: protocol.KindHide, Position: 1})
	if errMsg, ok := conn.lastOfKind(protocol.KindError); !ok || !strings.Contains(errMsg.Text, "join") {
		t.Errorf("Expected a join-first error, got %+v", errMsg)
	}
}

func TestRuleViolationIsolatedToOffender(t *testing.T) {
	srv := newTestServer(t, 0)
	p1, conn1 := join(t, srv, "alice")
	_, conn2 := join(t, srv, "bob")

	before1 := len(conn1.messages())
	before2 := len(conn2.messages())

	// Player 1 is the hider; guessing is the wrong role.
	srv.Dispatch(p1, protocol.Message{Type: protocol.KindGuess, Position: 1})

	errMsg, ok := conn1.lastOfKind(protocol.KindError)
	if !ok {
		t.Fatal("Expected the offender to receive an error")
	}
	if errMsg.Text == "" {
		t.Error("Expected a reason in the error message")
	}
	if len(conn1.messages()) != before1+1 {
		t.Errorf("Expected exactly one frame to the offender, got %d new", len(conn1.messages())-before1)
	}
	if len(conn2.messages()) != before2 {
		t.Errorf("Expected no frames to the other player, got %d new", len(conn2.messages())-before2)
	}
}

func TestStateBroadcastIsRedactedPerRecipient(t *testing.T) {
	srv := newTestServer(t, 0)
	p1, conn1 := join(t, srv, "alice")
	_, conn2 := join(t, srv, "bob")

	srv.Dispatch(p1, protocol.Message{Type: protocol.KindHide, Position: 2})

	state1, ok := conn1.lastOfKind(protocol.KindGameState)
	if !ok || state1.State == nil {
		t.Fatal("Expected a state broadcast to the hider")
	}
	if state1.State.Secret != 2 {
		t.Errorf("Expected the hider to see secret 2, got %d", state1.State.Secret)
	}

	state2, ok := conn2.lastOfKind(protocol.KindGameState)
	if !ok || state2.State == nil {
		t.Fatal("Expected a state broadcast to the guesser")
	}
	if state2.State.Secret != 0 {
		t.Errorf("Secret leaked to the guesser: %d", state2.State.Secret)
	}
	for _, mv := range state2.State.Moves {
		if mv.Action == string(engine.ActionHide) && mv.Position != 0 {
			t.Errorf("Hide position leaked to the guesser via the move log: %+v", mv)
		}
	}
}

func TestChatRelayedToAll(t *testing.T) {
	srv := newTestServer(t, 0)
	p1, conn1 := join(t, srv, "alice")
	_, conn2 := join(t, srv, "bob")

	srv.Dispatch(p1, protocol.Message{Type: protocol.KindChat, Text: "good luck"})

	for i, conn := range []*fakeConn{conn1, conn2} {
		msg, ok := conn.lastOfKind(protocol.KindMessage)
		if !ok {
			t.Fatalf("Peer %d did not receive the chat relay", i+1)
		}
		if !strings.Contains(msg.Text, "good luck") || !strings.Contains(msg.Text, fmt.Sprintf("Player %d", p1.PlayerID())) {
			t.Errorf("Peer %d got unexpected relay text %q", i+1, msg.Text)
		}
	}
}

func TestQuitAcknowledgedAndAnnounced(t *testing.T) {
	srv := newTestServer(t, 0)
	p1, conn1 := join(t, srv, "alice")
	_, conn2 := join(t, srv, "bob")

	srv.Dispatch(p1, protocol.Message{Type: protocol.KindQuit})

	if _, ok := conn1.lastOfKind(protocol.KindQuitAck); !ok {
		t.Error("Expected a quit_ack to the leaving player")
	}
	if !conn1.isClosed() {
		t.Error("Expected the connection closed after quit")
	}
	if srv.Registry().Get(p1.PlayerID()) != nil {
		t.Error("Expected the peer unregistered after quit")
	}

	msg, ok := conn2.lastOfKind(protocol.KindMessage)
	if !ok || !strings.Contains(msg.Text, "left") {
		t.Errorf("Expected a departure announcement to the remaining player, got %+v", msg)
	}
	if state, ok := conn2.lastOfKind(protocol.KindGameState); !ok || state.State.PlayerByID(p1.PlayerID()) != nil {
		t.Error("Expected a state broadcast without the departed player")
	}
}

func TestBroadcastFailureTearsDownOnlyFailedPeer(t *testing.T) {
	srv := newTestServer(t, 0)
	p1, conn1 := join(t, srv, "alice")
	p2, conn2 := join(t, srv, "bob")
	_, conn3 := join(t, srv, "carol")

	// Player 2's connection dies silently. The next broadcast discovers it.
	conn2.setFail(true)
	srv.Dispatch(p1, protocol.Message{Type: protocol.KindChat, Text: "anyone there?"})

	if srv.Registry().Get(p2.PlayerID()) != nil {
		t.Error("Expected the failed peer unregistered")
	}
	if !conn2.isClosed() {
		t.Error("Expected the failed connection closed")
	}
	// The survivors keep receiving.
	for i, conn := range []*fakeConn{conn1, conn3} {
		if _, ok := conn.lastOfKind(protocol.KindMessage); !ok {
			t.Errorf("Surviving peer %d stopped receiving broadcasts", i+1)
		}
	}
	// And the departure was announced to them.
	msg, _ := conn3.lastOfKind(protocol.KindMessage)
	if !strings.Contains(msg.Text, "left") {
		t.Errorf("Expected a departure announcement, got %q", msg.Text)
	}
}

func TestTeardownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, 0)
	p1, _ := join(t, srv, "alice")
	_, conn2 := join(t, srv, "bob")

	srv.Teardown(p1)
	before := len(conn2.messages())
	srv.Teardown(p1)
	srv.Teardown(p1)

	if got := len(conn2.messages()); got != before {
		t.Errorf("Repeated teardown produced %d extra frames", got-before)
	}
	if srv.Registry().Count() != 1 {
		t.Errorf("Expected 1 registered peer, got %d", srv.Registry().Count())
	}
}

func TestTeardownOfAnonymousPeer(t *testing.T) {
	srv := newTestServer(t, 0)
	_, conn2 := join(t, srv, "alice")

	conn := &fakeConn{}
	p := srv.Accept(conn)
	before := len(conn2.messages())

	// A connection that never joined leaves no trace in the game.
	srv.Teardown(p)
	if !conn.isClosed() {
		t.Error("Expected the anonymous connection closed")
	}
	if got := len(conn2.messages()); got != before {
		t.Error("Anonymous teardown must not broadcast")
	}
}

func TestWinTriggersAutoReset(t *testing.T) {
	config := engine.DefaultConfig()
	config.WinScore = 1
	store, err := session.NewStore(config)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	srv := New(store, 0)

	p1, _ := join(t, srv, "alice")
	p2, conn2 := join(t, srv, "bob")

	srv.Dispatch(p1, protocol.Message{Type: protocol.KindHide, Position: 2})
	srv.Dispatch(p2, protocol.Message{Type: protocol.KindGuess, Position: 2})

	winnerSeen := false
	for _, m := range conn2.messages() {
		if m.Type == protocol.KindMessage && strings.Contains(m.Text, "wins") {
			winnerSeen = true
		}
	}
	if !winnerSeen {
		t.Error("Expected a winner announcement")
	}

	state, ok := conn2.lastOfKind(protocol.KindGameState)
	if !ok {
		t.Fatal("Expected a state broadcast after the reset")
	}
	if state.State.Phase != engine.PhaseActive {
		t.Errorf("Expected a fresh active game after the win, got %q", state.State.Phase)
	}
	if got := state.State.PlayerByID(p2.PlayerID()).Score; got != 0 {
		t.Errorf("Expected scores cleared by the reset, got %d", got)
	}
}

func TestUnsupportedMessageType(t *testing.T) {
	srv := newTestServer(t, 0)
	p, conn := join(t, srv, "alice")

	srv.Dispatch(p, protocol.Message{Type: "teleport"})
	if errMsg, ok := conn.lastOfKind(protocol.KindError); !ok || !strings.Contains(errMsg.Text, "teleport") {
		t.Errorf("Expected an unsupported type error naming the kind, got %+v", errMsg)
	}
}
