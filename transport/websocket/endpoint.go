// Package websocket serves the cup game protocol over WebSocket. Each
// WebSocket message carries protocol frames; the connection is adapted
// to the byte-stream abstraction so the codec and dispatch path are
// shared with the TCP transport.
package websocket

import (
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cupgame-server/protocol"
	"cupgame-server/server"
	"cupgame-server/transport/stream"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Endpoint upgrades HTTP requests and feeds the resulting connections
// into the session server.
type Endpoint struct {
	srv *server.Server
}

// NewEndpoint creates a WebSocket endpoint backed by srv
func NewEndpoint(srv *server.Server) *Endpoint {
	return &Endpoint{srv: srv}
}

// ServeHTTP handles WebSocket requests from clients
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go pingLoop(conn, done)

	h := stream.NewHandle(&wsStream{conn: conn}, conn.RemoteAddr().String())
	peer := e.srv.Accept(h)

	err = h.ReadLoop(func(m protocol.Message) {
		e.srv.Dispatch(peer, m)
	})
	if err != nil && err != io.EOF && !errors.Is(err, net.ErrClosed) &&
		!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("WebSocket receive loop for %s ended: %v", conn.RemoteAddr(), err)
	}

	close(done)
	e.srv.Teardown(peer)
}

// pingLoop keeps the connection alive until done is closed. Control
// frames may be written concurrently with data frames.
func pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// wsStream adapts a WebSocket connection to the byte-stream interface.
// Reads concatenate successive messages; each Write becomes one text
// message, which the shared handle calls once per encoded frame.
type wsStream struct {
	conn *websocket.Conn
	r    io.Reader
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				return 0, err
			}
			s.r = r
		}
		n, err := s.r.Read(p)
		if err == io.EOF {
			s.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
