// Package tcp serves the cup game protocol over plain TCP connections,
// one goroutine per accepted connection.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"cupgame-server/protocol"
	"cupgame-server/server"
	"cupgame-server/transport/stream"
)

// Acceptor listens for inbound connections and spawns a connection
// handle plus receive loop per accepted connection.
type Acceptor struct {
	ln  net.Listener
	srv *server.Server
}

// NewAcceptor wraps an already-bound listener. The caller keeps
// ownership of listener creation so the same acceptor works for local
// listeners and tunneled ones.
func NewAcceptor(ln net.Listener, srv *server.Server) *Acceptor {
	return &Acceptor{ln: ln, srv: srv}
}

// Addr returns the listener's address.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Serve accepts connections until the context is canceled or the
// listener fails. It blocks; run it in its own goroutine.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.ln.Close()
	}()

	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		go a.handle(conn)
	}
}

// handle runs one connection's lifecycle: register with the server, pump
// decoded frames into dispatch, tear down on loop exit.
func (a *Acceptor) handle(conn net.Conn) {
	h := stream.NewHandle(conn, conn.RemoteAddr().String())
	peer := a.srv.Accept(h)

	err := h.ReadLoop(func(m protocol.Message) {
		a.srv.Dispatch(peer, m)
	})
	if err != nil && err != io.EOF && !errors.Is(err, net.ErrClosed) {
		log.Printf("Receive loop for %s ended: %v", conn.RemoteAddr(), err)
	}

	a.srv.Teardown(peer)
}
