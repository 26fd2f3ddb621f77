// Package mcp exposes the cup game to MCP-speaking agents. The MCP
// server is a thin bridge: it joins the running game server over the
// normal TCP protocol through the client session controller, so an
// agent plays under exactly the same rules as any other player.
package mcp
