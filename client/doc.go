// Package client implements the cup game client session controller: a
// connect/reconnect state machine, a background receive loop, and an
// outbound send path.
//
// Connect dials the server, joins, and starts the receive loop. Dial or
// handshake failures are retried with exponential backoff up to a
// bounded number of attempts, after which ErrConnectFailed surfaces. If
// an established connection drops, the controller reconnects in the
// background under the same budget and joins again as a new player (the
// server does not persist identity across connections).
//
// The receive loop caches the last game_state snapshot; actions are
// permitted only when the cache says it is this client's turn. That
// check is optimistic: the server re-validates every action and may
// still reject it.
package client
