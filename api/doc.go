// Package api provides the HTTP observation and operations endpoints of
// the cup game server.
//
// The api package implements:
//   - Spectator access to the redacted game state
//   - Server status for monitoring
//   - Move history with pagination
//   - Configuration listing and inspection
//   - An operator-triggered game reset
//   - WebSocket upgrade handling for playing clients
//
// Endpoints:
//
// Observation:
//   - GET /healthz - Liveness check
//   - GET /api/status - Phase, player count and connection count
//   - GET /api/state - Redacted game state snapshot
//   - GET /api/history - Move log, newest last, with optional ?limit=N
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Get one configuration
//
// Operations:
//   - POST /api/reset - Restart the game with the current players
//
// Play:
//   - GET /ws - WebSocket upgrade into the game protocol
//
// All endpoints return JSON. The state and history served here go
// through the same redaction as a guessing player's snapshot, so the
// hidden position never leaves the server via HTTP.
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message"
//	}
package api
