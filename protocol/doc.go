// Package protocol defines the wire protocol shared by the cup game
// server and client.
//
// Every frame is a single JSON object terminated by a newline. The
// Decoder buffers partial reads and splits coalesced reads, so a frame
// may arrive across any number of underlying Read calls and several
// frames may arrive in one. A frame that fails to parse is reported as
// ErrMalformedFrame and skipped; three consecutive bad frames terminate
// the stream with ErrTooManyBadFrames.
package protocol
