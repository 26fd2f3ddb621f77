// Package stream provides the per-connection handle shared by the TCP
// and WebSocket transports: one owned byte stream, a serialized send
// path, and the receive loop feeding decoded frames to the server.
package stream

import (
	"errors"
	"sync"

	"cupgame-server/protocol"
)

// ErrConnectionClosed is returned by Send once the handle is closed.
var ErrConnectionClosed = errors.New("connection closed")

// Stream is the bidirectional byte stream a transport supplies.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Handle owns exactly one stream. Send is safe for concurrent use; the
// receive loop is single-goroutine by construction.
type Handle struct {
	stream Stream
	addr   string
	enc    *protocol.Encoder
	dec    *protocol.Decoder

	writeMu   sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps a stream. addr is the peer's remote address, used for
// logging only.
func NewHandle(s Stream, addr string) *Handle {
	return &Handle{
		stream: s,
		addr:   addr,
		enc:    protocol.NewEncoder(s),
		dec:    protocol.NewDecoder(s),
	}
}

// Send encodes and writes one frame. Concurrent calls are serialized so
// frames never interleave on the wire. After Close, or once the peer is
// gone, Send fails instead of blocking.
func (h *Handle) Send(m protocol.Message) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if h.closed {
		return ErrConnectionClosed
	}
	return h.enc.Encode(m)
}

// Close shuts the underlying stream down. Safe to call multiple times
// and from multiple goroutines; only the first call closes the stream.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.writeMu.Lock()
		h.closed = true
		h.writeMu.Unlock()
		h.closeErr = h.stream.Close()
	})
	return h.closeErr
}

// RemoteAddr returns the peer's remote address.
func (h *Handle) RemoteAddr() string {
	return h.addr
}

// ReadLoop decodes inbound frames until the stream ends or decoding
// fails fatally, invoking onMessage for every complete frame. A single
// malformed frame is answered with an error frame and skipped; the loop
// returns the terminal error (io.EOF on orderly shutdown).
func (h *Handle) ReadLoop(onMessage func(protocol.Message)) error {
	for {
		m, err := h.dec.Decode()
		switch {
		case err == nil:
			onMessage(m)
		case errors.Is(err, protocol.ErrMalformedFrame):
			_ = h.Send(protocol.Error("malformed frame dropped"))
		default:
			return err
		}
	}
}
