// Package server implements the session core of the cup game server: it
// tracks connected peers, dispatches decoded protocol messages to the
// game-state store, and fans authoritative state snapshots back out.
//
// Transports (TCP, WebSocket) hand every accepted connection to
// Server.Accept, feed decoded frames into Server.Dispatch, and call
// Server.Teardown when the receive loop exits. Teardown is idempotent:
// it may be triggered by the receive loop, by a failed broadcast send,
// or by a quit message, in any order.
//
// Broadcasts always iterate over a just-taken snapshot of the registry,
// so concurrent joins and leaves never invalidate an in-flight fan-out,
// and one peer's send failure never prevents delivery to the others.
package server
