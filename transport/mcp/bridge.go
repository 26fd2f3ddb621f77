package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cupgame-server/client"
	"cupgame-server/render"
)

// Bridge is an MCP server that plays the cup game as a regular network
// client of a running game server.
type Bridge struct {
	addr     string
	username string

	mu  sync.Mutex
	cli *client.Client

	mcpServer *server.MCPServer
}

// NewBridge creates a bridge targeting the game server at addr
func NewBridge(addr, username string) *Bridge {
	b := &Bridge{
		addr:     addr,
		username: username,
	}
	b.initMCPServer()
	return b
}

// initMCPServer initializes the MCP server with all tools
func (b *Bridge) initMCPServer() {
	b.mcpServer = server.NewMCPServer(
		"Cup Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cup Game - MCP Interface

A turn-based hide-and-guess game played against other connected players.

GAME OBJECTIVE:
The hider secretly places a marker under one of the cups; the guesser
picks a cup. Correct guesses score a point. First player to reach the
win threshold wins, and a fresh round starts.

AVAILABLE TOOLS:
- join_game: Connect to the server and enter the session
- game_state: Show the current game state as seen by this player
- hide: Commit the secret cup (hider role, on your turn)
- guess: Pick a cup (guesser role, on your turn)
- move: Generic positional action for simpler variants
- chat: Send a message to all players
- quit_game: Leave the session gracefully

Wait for your turn: game_state shows whose turn it is and your role.`),
	)

	b.registerTools()
}

// registerTools registers all MCP tools
func (b *Bridge) registerTools() {
	b.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Connect to the game server and join the session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Display name to join with (optional)",
				},
			},
		},
	}, b.handleJoin)

	b.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state as seen by this player",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, b.handleGameState)

	for _, action := range []struct {
		name, description string
	}{
		{"hide", "Hide the marker under a cup (requires the hider role and your turn)"},
		{"guess", "Guess which cup hides the marker (requires the guesser role and your turn)"},
		{"move", "Submit a generic positional action on your turn"},
	} {
		b.mcpServer.AddTool(mcp.Tool{
			Name:        action.name,
			Description: action.description,
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"position": map[string]interface{}{
						"type":        "integer",
						"description": "Cup position, starting at 1",
					},
				},
				Required: []string{"position"},
			},
		}, b.handleAction(action.name))
	}

	b.mcpServer.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Send a chat message to all players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Text to send, relayed verbatim",
				},
			},
			Required: []string{"message"},
		},
	}, b.handleChat)

	b.mcpServer.AddTool(mcp.Tool{
		Name:        "quit_game",
		Description: "Leave the game session gracefully",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, b.handleQuit)
}

// MCPServer returns the underlying MCP server for serving
func (b *Bridge) MCPServer() *server.MCPServer {
	return b.mcpServer
}

// session returns the connected client, or nil before join_game.
func (b *Bridge) session() *client.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cli
}

// drainEvents collects event texts that arrived since the last call, so
// tool results include broadcasts the agent would otherwise miss.
func drainEvents(cli *client.Client) string {
	var out string
	for {
		select {
		case e := <-cli.Events():
			if e.Text != "" {
				out += e.Text + "\n"
			}
		default:
			return out
		}
	}
}

// Tool handlers

func (b *Bridge) handleJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	username, _ := args["username"].(string)
	if username == "" {
		username = b.username
	}

	b.mu.Lock()
	if b.cli != nil {
		b.mu.Unlock()
		return mcp.NewToolResultError("already joined"), nil
	}
	cli := client.New(client.Options{Addr: b.addr, Username: username})
	b.mu.Unlock()

	if err := cli.Connect(ctx); err != nil {
		cli.Close()
		return mcp.NewToolResultError(err.Error()), nil
	}

	b.mu.Lock()
	b.cli = cli
	b.mu.Unlock()

	// Give the join broadcast a moment to arrive.
	time.Sleep(100 * time.Millisecond)
	result := fmt.Sprintf("Joined as Player %d\n%s%s",
		cli.PlayerID(), drainEvents(cli), render.State(cli.GameState(), cli.PlayerID()))
	return mcp.NewToolResultText(result), nil
}

func (b *Bridge) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cli := b.session()
	if cli == nil {
		return mcp.NewToolResultError("not joined; call join_game first"), nil
	}

	result := drainEvents(cli) + render.State(cli.GameState(), cli.PlayerID())
	return mcp.NewToolResultText(result), nil
}

func (b *Bridge) handleAction(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cli := b.session()
		if cli == nil {
			return mcp.NewToolResultError("not joined; call join_game first"), nil
		}

		args, _ := request.Params.Arguments.(map[string]interface{})
		posArg, _ := args["position"].(float64)
		position := int(posArg)

		var err error
		switch name {
		case "hide":
			err = cli.Hide(position)
		case "guess":
			err = cli.Guess(position)
		default:
			err = cli.Move(position)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		// Wait for the server's verdict to come back on the stream.
		time.Sleep(200 * time.Millisecond)
		result := drainEvents(cli) + render.State(cli.GameState(), cli.PlayerID())
		return mcp.NewToolResultText(result), nil
	}
}

func (b *Bridge) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cli := b.session()
	if cli == nil {
		return mcp.NewToolResultError("not joined; call join_game first"), nil
	}

	args, _ := request.Params.Arguments.(map[string]interface{})
	text, _ := args["message"].(string)
	if err := cli.Chat(text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("sent"), nil
}

func (b *Bridge) handleQuit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b.mu.Lock()
	cli := b.cli
	b.cli = nil
	b.mu.Unlock()
	if cli == nil {
		return mcp.NewToolResultError("not joined"), nil
	}

	_ = cli.Quit()
	time.Sleep(100 * time.Millisecond)
	goodbye := drainEvents(cli)
	cli.Close()
	if goodbye == "" {
		goodbye = "left the game\n"
	}
	return mcp.NewToolResultText(goodbye), nil
}
