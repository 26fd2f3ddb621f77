package server

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"cupgame-server/protocol"
)

// Conn is the send side of one client connection, supplied by a
// transport. Send must be safe for concurrent use and must fail, not
// block forever, once the peer is gone. Close must be idempotent.
type Conn interface {
	Send(m protocol.Message) error
	Close() error
	RemoteAddr() string
}

// Peer is the server-side identity of one connection. Before join
// completes it is anonymous and identified only by its connection ID;
// after join it also carries the assigned player ID.
type Peer struct {
	ConnID uuid.UUID

	conn     Conn
	playerID atomic.Int64
	username atomic.Value // string
	downOnce sync.Once
}

func newPeer(conn Conn) *Peer {
	return &Peer{ConnID: uuid.New(), conn: conn}
}

// PlayerID returns the assigned player ID, or 0 before join completes.
func (p *Peer) PlayerID() int {
	return int(p.playerID.Load())
}

// Username returns the name the peer joined with, or "".
func (p *Peer) Username() string {
	name, _ := p.username.Load().(string)
	return name
}

// RemoteAddr returns the peer's remote address.
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr()
}

// Send forwards a message to the underlying connection.
func (p *Peer) Send(m protocol.Message) error {
	return p.conn.Send(m)
}
