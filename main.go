// Command cupgame-server starts the cup game session server.
//
// It supports two modes:
//  1. "server" (default) – runs the TCP game server, with an optional
//     WebSocket endpoint and an optional public ngrok TCP tunnel
//  2. "mcp" – runs an MCP stdio bridge so an agent can join the game;
//     it spins up an internal server if none is reachable
//
// Flags control host/port, config directory, the selected game rules,
// debug logging, log-file output, version output, and ngrok tunneling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"cupgame-server/api"
	"cupgame-server/game/config"
	"cupgame-server/game/engine"
	"cupgame-server/game/session"
	"cupgame-server/server"
	"cupgame-server/transport/mcp"
	"cupgame-server/transport/tcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cup Game Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 12345, "TCP server port")
	host         = flag.String("host", "127.0.0.1", "TCP server host")
	httpPort     = flag.Int("http-port", 0, "HTTP API and WebSocket port (0 disables)")
	configDir    = flag.String("config-dir", getConfigDirDefault(), "Directory containing game configurations")
	gameName     = flag.String("game", "", "Name of the game configuration to run (default: classic)")
	maxClients   = flag.Int("max-clients", 5, "Maximum simultaneous players (0 for unlimited)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	logFile      = flag.String("log-file", "", "Write logs to this file instead of stderr")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok TCP tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	mcpAddr      = flag.String("server-addr", "", "Game server address for mcp mode (default: host:port)")
)

// getConfigDirDefault returns the default configuration directory.
// It first honors the CONFIG_DIR environment variable, then falls back to "configs".
func getConfigDirDefault() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "configs"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server           Run the TCP game server (default)\n")
		fmt.Fprintf(os.Stderr, "  mcp, stdio-mcp   Run the MCP stdio bridge\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run the game server on 127.0.0.1:12345\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run the game server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -http-port 8080    # Also serve the HTTP API and WebSocket clients on :8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s mcp                # Run the MCP stdio bridge\n", os.Args[0])
	}
}

// main parses flags, initializes the game, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	setupLogging()

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	switch mode {
	case "server":
		runServer()
	case "mcp", "stdio-mcp", "mcp-stdio":
		runStdioMCP()
	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'mcp'", mode)
	}
}

// setupLogging configures the standard logger per the -debug and
// -log-file flags. The log directory is created if needed.
func setupLogging() {
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	if *logFile == "" {
		return
	}
	if dir := filepath.Dir(*logFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create log directory: %v", err)
		}
	}
	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	log.SetOutput(f)
}

// selectConfig resolves the game rules from the config directory.
func selectConfig(manager *config.Manager) *engine.GameConfig {
	if *gameName == "" {
		return manager.Default()
	}

	cfg, err := manager.Load(*gameName)
	if err != nil {
		log.Fatalf("Failed to load game config %q: %v", *gameName, err)
	}
	return cfg
}

// runServer starts the TCP acceptor, plus the optional WebSocket
// endpoint and ngrok tunnel, and blocks until a shutdown signal.
func runServer() {
	manager := config.NewManager(*configDir)
	cfg := selectConfig(manager)
	store, err := session.NewStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize game: %v", err)
	}
	srv := server.New(store, *maxClients)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Game server listening on %s (game %q, win at %d)", addr, cfg.Name, cfg.WinScore)
		if err := tcp.NewAcceptor(ln, srv).Serve(ctx); err != nil {
			log.Fatalf("TCP server failed: %v", err)
		}
	}()

	var httpServer *http.Server
	if *httpPort > 0 {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", *host, *httpPort),
			Handler: api.NewServer(srv, store, manager),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("HTTP API on http://%s/api, WebSocket endpoint on ws://%s/ws", httpServer.Addr, httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTP server failed: %v", err)
			}
		}()
	}

	if ngrokShouldRun() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, srv)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	wg.Wait()
	log.Println("Server stopped")
}

// ngrokShouldRun checks the flag and the NGROK_ENABLED environment variable.
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	env := os.Getenv("NGROK_ENABLED")
	return env == "true" || env == "1"
}

// runNgrokTunnel exposes the game server through a public ngrok TCP
// endpoint and serves the same session core on it.
func runNgrokTunnel(ctx context.Context, srv *server.Server) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")
	tun, err := ngrok.Listen(ctx,
		ngrokConfig.TCPEndpoint(),
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	log.Printf("Ngrok tunnel established: %s", tun.URL())
	if err := tcp.NewAcceptor(tun, srv).Serve(ctx); err != nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runStdioMCP runs the MCP stdio bridge. It targets an already-running
// game server when one is reachable and otherwise starts an internal
// one on a random loopback port.
func runStdioMCP() {
	addr := *mcpAddr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", *host, *port)
	}

	if conn, err := net.DialTimeout("tcp", addr, 2*time.Second); err == nil {
		conn.Close()
		log.Printf("Game server found at %s, using it for MCP", addr)
	} else {
		log.Printf("No game server found at %s, starting internal server", addr)

		store, err := session.NewStore(selectConfig(config.NewManager(*configDir)))
		if err != nil {
			log.Fatalf("Failed to initialize game: %v", err)
		}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}
		addr = ln.Addr().String()
		log.Printf("Internal game server listening on %s", addr)

		go func() {
			if err := tcp.NewAcceptor(ln, server.New(store, *maxClients)).Serve(context.Background()); err != nil {
				log.Printf("Internal server error: %v", err)
			}
		}()
	}

	bridge := mcp.NewBridge(addr, "agent")
	log.Println("MCP stdio bridge ready")
	if err := mcpserver.ServeStdio(bridge.MCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}
