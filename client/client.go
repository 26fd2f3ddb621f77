package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"

	"cupgame-server/game/engine"
	"cupgame-server/protocol"
)

var (
	// ErrConnectFailed reports an exhausted reconnect budget. Fatal to
	// the client session.
	ErrConnectFailed = errors.New("connect failed")

	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("not connected")

	// ErrNotYourTurn is the local optimistic turn check failing; the
	// action was not sent.
	ErrNotYourTurn = errors.New("not your turn")

	errClientClosed = errors.New("client closed")
)

// ConnState is the controller's connection state
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Event is one user-visible occurrence surfaced by the receive loop.
// For KindGameState events the payload is read through GameState().
type Event struct {
	Kind protocol.Kind
	Text string
}

// Dialer opens the transport stream. Swappable for tests.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	Addr          string
	Username      string
	MaxAttempts   int           // connect attempt budget, default 5
	MinRetryDelay time.Duration // default 500ms
	MaxRetryDelay time.Duration // default 5s
	Dialer        Dialer
	EventBuffer   int // default 64; events are dropped when the buffer is full
}

// Client is the client session controller. One background goroutine
// receives frames while the caller's own goroutine submits actions.
type Client struct {
	opts  Options
	state atomic.Int32

	mu       sync.Mutex // guards conn, enc, playerID, last
	conn     net.Conn
	enc      *protocol.Encoder
	playerID int
	last     *engine.GameState

	sendMu sync.Mutex // serializes frame writes

	events   chan Event
	closed   atomic.Bool
	quitting atomic.Bool
}

// New creates a client; call Connect to establish the session.
func New(opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.MinRetryDelay <= 0 {
		opts.MinRetryDelay = 500 * time.Millisecond
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = 5 * time.Second
	}
	if opts.Dialer == nil {
		d := &net.Dialer{Timeout: 10 * time.Second}
		opts.Dialer = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	return &Client{
		opts:   opts,
		events: make(chan Event, opts.EventBuffer),
	}
}

// Connect dials and joins, retrying with exponential backoff up to the
// attempt budget. On success the background receive loop is running and
// the client is Connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errClientClosed
	}
	c.quitting.Store(false)
	c.state.Store(int32(StateConnecting))

	delay := &backoff.Backoff{
		Min:    c.opts.MinRetryDelay,
		Max:    c.opts.MaxRetryDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		conn, err := c.opts.Dialer(ctx, c.opts.Addr)
		if err == nil {
			var dec *protocol.Decoder
			dec, err = c.handshake(conn)
			if err == nil {
				c.state.Store(int32(StateConnected))
				go c.listen(conn, dec)
				return nil
			}
			conn.Close()
		}
		lastErr = err

		if attempt == c.opts.MaxAttempts {
			break
		}
		select {
		case <-time.After(delay.Duration()):
		case <-ctx.Done():
			c.state.Store(int32(StateDisconnected))
			return ctx.Err()
		}
	}

	c.state.Store(int32(StateDisconnected))
	return fmt.Errorf("%w after %d attempts: %v", ErrConnectFailed, c.opts.MaxAttempts, lastErr)
}

// handshake sends join and waits for join_ack. The returned decoder
// carries any frames buffered past the ack and must be reused by the
// receive loop.
func (c *Client) handshake(conn net.Conn) (*protocol.Decoder, error) {
	enc := protocol.NewEncoder(conn)
	if err := enc.Encode(protocol.Message{Type: protocol.KindJoin, Username: c.opts.Username}); err != nil {
		return nil, fmt.Errorf("send join: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	dec := protocol.NewDecoder(conn)
	for {
		m, err := dec.Decode()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedFrame) {
				continue
			}
			return nil, fmt.Errorf("await join_ack: %w", err)
		}
		if m.Type != protocol.KindJoinAck {
			// Broadcasts from other players may interleave before
			// the ack; consume them normally.
			c.consume(m)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.enc = enc
		c.playerID = m.PlayerID
		c.mu.Unlock()
		c.publish(Event{Kind: protocol.KindJoinAck, Text: m.Text})
		return dec, nil
	}
}

// listen is the background receive loop. On connection loss it flips to
// Disconnected and retries the whole connect sequence; exhausting the
// budget surfaces a fatal error event.
func (c *Client) listen(conn net.Conn, dec *protocol.Decoder) {
	for {
		m, err := dec.Decode()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedFrame) {
				continue
			}
			break
		}
		c.consume(m)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.enc = nil
	}
	c.mu.Unlock()
	c.state.Store(int32(StateDisconnected))

	if c.closed.Load() || c.quitting.Load() {
		// A requested quit ends the session; the server closing the
		// connection after quit_ack is not a connection loss.
		return
	}
	c.publish(Event{Kind: protocol.KindError, Text: "connection lost, reconnecting"})
	if err := c.Connect(context.Background()); err != nil && !errors.Is(err, errClientClosed) {
		c.publish(Event{Kind: protocol.KindError, Text: err.Error()})
	}
}

func (c *Client) consume(m protocol.Message) {
	switch m.Type {
	case protocol.KindGameState:
		if m.State == nil {
			return
		}
		c.mu.Lock()
		c.last = m.State
		c.mu.Unlock()
		c.publish(Event{Kind: protocol.KindGameState})

	case protocol.KindMessage, protocol.KindError, protocol.KindQuitAck:
		c.publish(Event{Kind: m.Type, Text: m.Text})
	}
}

func (c *Client) publish(e Event) {
	select {
	case c.events <- e:
	default:
		// A slow consumer loses events rather than stalling the
		// receive loop.
	}
}

// Events returns the stream of user-visible events.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the controller's connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// PlayerID returns the server-assigned identity, or 0 before join.
func (c *Client) PlayerID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// GameState returns the last received snapshot, or nil. The snapshot is
// owned by the caller; the cache is replaced, never mutated.
func (c *Client) GameState() *engine.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Role returns this player's role in the cached snapshot.
func (c *Client) Role() engine.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return engine.RoleNone
	}
	if p := c.last.PlayerByID(c.playerID); p != nil {
		return p.Role
	}
	return engine.RoleNone
}

// IsMyTurn reports whether the cached snapshot says this client may act.
func (c *Client) IsMyTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last != nil &&
		c.last.Phase == engine.PhaseActive &&
		c.last.Turn == c.playerID &&
		c.playerID != 0
}

// Hide commits the secret position. Local turn check only; the server
// re-validates.
func (c *Client) Hide(position int) error {
	return c.act(protocol.KindHide, position)
}

// Guess attempts to match the hidden position.
func (c *Client) Guess(position int) error {
	return c.act(protocol.KindGuess, position)
}

// Move submits a generic positional action.
func (c *Client) Move(position int) error {
	return c.act(protocol.KindMove, position)
}

func (c *Client) act(kind protocol.Kind, position int) error {
	if !c.IsMyTurn() {
		return ErrNotYourTurn
	}
	return c.send(protocol.Message{Type: kind, Position: position})
}

// Chat sends free text, relayed verbatim to all players.
func (c *Client) Chat(text string) error {
	return c.send(protocol.Message{Type: protocol.KindChat, Text: text})
}

// Quit asks the server for a graceful leave. The server acknowledges
// with quit_ack and closes the connection; the receive loop will not
// reconnect after a requested quit. Call Close afterwards. A later
// Connect starts a fresh session.
func (c *Client) Quit() error {
	c.quitting.Store(true)
	if err := c.send(protocol.Message{Type: protocol.KindQuit}); err != nil {
		c.quitting.Store(false)
		return err
	}
	return nil
}

func (c *Client) send(m protocol.Message) error {
	c.mu.Lock()
	enc := c.enc
	c.mu.Unlock()
	if enc == nil {
		return ErrNotConnected
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return enc.Encode(m)
}

// Close ends the session and stops reconnecting. Idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.enc = nil
	c.mu.Unlock()
	c.state.Store(int32(StateDisconnected))
	if conn != nil {
		return conn.Close()
	}
	return nil
}
