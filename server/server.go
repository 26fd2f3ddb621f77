package server

import (
	"fmt"
	"log"

	"cupgame-server/game/engine"
	"cupgame-server/game/session"
	"cupgame-server/protocol"
)

// Server owns the session registry and routes decoded messages between
// connections and the game-state store.
type Server struct {
	store    *session.Store
	registry *Registry
}

// New creates a server around the given store. maxClients caps the
// number of simultaneously joined players; 0 disables the cap. The cap
// is enforced inside the store's join so concurrent joins cannot
// overshoot it.
func New(store *session.Store, maxClients int) *Server {
	store.SetJoinLimit(maxClients)
	return &Server{
		store:    store,
		registry: NewRegistry(),
	}
}

// Registry exposes the session registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// Accept wraps a freshly accepted connection in an anonymous peer. The
// transport owns the receive loop and must call Teardown when it exits.
func (s *Server) Accept(c Conn) *Peer {
	p := newPeer(c)
	log.Printf("Client %s connected (conn %s)", c.RemoteAddr(), p.ConnID)
	return p
}

// Dispatch handles one decoded message from a peer. Rule violations are
// reported to the offending peer only; every error is isolated to the
// connection it occurred on.
func (s *Server) Dispatch(p *Peer, m protocol.Message) {
	switch m.Type {
	case protocol.KindJoin:
		s.handleJoin(p, m)

	case protocol.KindHide:
		s.handleAction(p, engine.Action{Kind: engine.ActionHide, Position: m.Position})

	case protocol.KindGuess:
		s.handleAction(p, engine.Action{Kind: engine.ActionGuess, Position: m.Position})

	case protocol.KindMove:
		s.handleAction(p, engine.Action{Kind: engine.ActionMove, Position: m.Position})

	case protocol.KindChat:
		s.handleChat(p, m)

	case protocol.KindQuit:
		s.handleQuit(p)

	default:
		s.reply(p, protocol.Error(fmt.Sprintf("unsupported message type %q", m.Type)))
	}
}

// Teardown releases a peer's resources exactly once. It is safe to call
// from the receive loop, from a failed send, and from quit handling
// concurrently.
func (s *Server) Teardown(p *Peer) {
	p.downOnce.Do(func() {
		_ = p.conn.Close()

		id := p.PlayerID()
		log.Printf("Client %s disconnected (conn %s, player %d)", p.RemoteAddr(), p.ConnID, id)
		if id == 0 {
			return
		}

		s.registry.Unregister(id)
		if s.store.Leave(id) {
			s.broadcastInfo(fmt.Sprintf("Player %d left the game", id))
			s.broadcastState()
		}
	})
}

func (s *Server) handleJoin(p *Peer, m protocol.Message) {
	if p.PlayerID() != 0 {
		s.reply(p, protocol.Error("already joined"))
		return
	}

	player, outcome, err := s.store.Join(m.Username, p.RemoteAddr())
	if err != nil {
		s.reply(p, protocol.Error(err.Error()))
		return
	}

	p.playerID.Store(int64(player.ID))
	p.username.Store(player.Username)
	s.registry.Register(p)
	log.Printf("Client %s joined as Player %d (%q)", p.RemoteAddr(), player.ID, player.Username)

	s.reply(p, protocol.Message{
		Type:     protocol.KindJoinAck,
		PlayerID: player.ID,
		Text:     fmt.Sprintf(s.store.Config().Messages.Welcome, player.ID),
	})
	if outcome.Text != "" {
		s.broadcastInfo(outcome.Text)
	}
	s.broadcastState()
}

func (s *Server) handleAction(p *Peer, act engine.Action) {
	id := p.PlayerID()
	if id == 0 {
		s.reply(p, protocol.Error("join before acting"))
		return
	}

	outcome, err := s.store.Apply(id, act)
	if err != nil {
		s.reply(p, protocol.Error(err.Error()))
		return
	}

	if outcome.Text != "" {
		s.broadcastInfo(outcome.Text)
	}
	s.broadcastState()

	if outcome.Kind == engine.OutcomeWinner {
		s.ResetGame()
	}
}

// ResetGame restarts the current game with the present players and
// notifies everyone. Used after a win and by the operations API.
func (s *Server) ResetGame() engine.Outcome {
	outcome := s.store.Reset()
	if outcome.Text != "" {
		s.broadcastInfo(outcome.Text)
	}
	s.broadcastState()
	return outcome
}

func (s *Server) handleChat(p *Peer, m protocol.Message) {
	id := p.PlayerID()
	if id == 0 {
		s.reply(p, protocol.Error("join before chatting"))
		return
	}
	// Relayed verbatim.
	s.broadcastInfo(fmt.Sprintf("Player %d: %s", id, m.Text))
}

func (s *Server) handleQuit(p *Peer) {
	text := "Goodbye!"
	if id := p.PlayerID(); id != 0 {
		text = fmt.Sprintf(s.store.Config().Messages.Goodbye, id)
	}
	_ = p.Send(protocol.Message{Type: protocol.KindQuitAck, Text: text})
	s.Teardown(p)
}

// reply sends to one peer; a failed send tears the peer down.
func (s *Server) reply(p *Peer, m protocol.Message) {
	if err := p.Send(m); err != nil {
		log.Printf("Send to %s failed: %v", p.RemoteAddr(), err)
		s.Teardown(p)
	}
}

// broadcastInfo fans an informational message out to every registered
// peer. Failed peers are torn down without aborting the delivery loop.
func (s *Server) broadcastInfo(text string) {
	for _, p := range s.registry.Broadcast(protocol.Info(text)) {
		log.Printf("Broadcast to %s failed, dropping connection", p.RemoteAddr())
		s.Teardown(p)
	}
}

// broadcastState sends every registered peer its own redacted snapshot.
// Snapshots are taken per recipient so the secret never reaches a
// player outside the hider role.
func (s *Server) broadcastState() {
	for _, p := range s.registry.Peers() {
		snapshot := s.store.SnapshotFor(p.PlayerID())
		if err := p.Send(protocol.StateSnapshot(snapshot)); err != nil {
			log.Printf("State broadcast to %s failed, dropping connection", p.RemoteAddr())
			s.Teardown(p)
		}
	}
}
