// Command cupbot is an autonomous player for the cup game server. It
// connects over TCP, joins, and plays its turns without supervision:
// random hides, systematic guesses. Useful for load testing a server and
// for giving a lone human someone to play against.
//
// The bot is intentionally self-contained (no dependency on the server
// module) so it exercises the wire protocol the way a foreign client
// implementation would.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net"
	"time"
)

var (
	addr     = flag.String("addr", "127.0.0.1:12345", "game server address")
	username = flag.String("username", "cupbot", "bot display name")
	delay    = flag.Duration("delay", 500*time.Millisecond, "pause before each action")
	quiet    = flag.Bool("quiet", false, "suppress game event logging")
)

// message mirrors one frame of the server's newline-delimited protocol.
type message struct {
	Type     string     `json:"type"`
	Username string     `json:"username,omitempty"`
	PlayerID int        `json:"player_id,omitempty"`
	Position int        `json:"position,omitempty"`
	Text     string     `json:"message,omitempty"`
	State    *gameState `json:"state,omitempty"`
}

type gameState struct {
	Phase   string   `json:"phase"`
	Players []player `json:"players"`
	Turn    int      `json:"turn"`
	Secret  int      `json:"secret"`
	Cups    int      `json:"cups"`
}

type player struct {
	ID    int    `json:"id"`
	Role  string `json:"role"`
	Score int    `json:"score"`
}

func main() {
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, 10*time.Second)
	if err != nil {
		log.Fatalf("Cannot reach %s: %v", *addr, err)
	}
	defer conn.Close()
	log.Printf("Connected to %s as %q", *addr, *username)

	enc := json.NewEncoder(conn)
	if err := enc.Encode(message{Type: "join", Username: *username}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	var (
		myID     int
		strategy *Strategy
	)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m message
		if err := json.Unmarshal(line, &m); err != nil {
			log.Printf("Skipping unparseable frame: %v", err)
			continue
		}

		switch m.Type {
		case "join_ack":
			myID = m.PlayerID
			log.Printf("Joined as Player %d", myID)

		case "message":
			if !*quiet {
				log.Printf("Server: %s", m.Text)
			}

		case "error":
			log.Printf("Rejected: %s", m.Text)

		case "quit_ack":
			log.Printf("Server: %s", m.Text)
			return

		case "game_state":
			if m.State == nil || myID == 0 {
				continue
			}
			if strategy == nil || strategy.cups != m.State.Cups {
				strategy = NewStrategy(m.State.Cups)
			}
			if act := strategy.Plan(m.State, myID); act != nil {
				time.Sleep(*delay)
				if !*quiet {
					log.Printf("Playing %s %d", act.Type, act.Position)
				}
				if err := enc.Encode(act); err != nil {
					log.Fatalf("Send failed: %v", err)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Connection lost: %v", err)
	}
	log.Println("Server closed the connection")
}

func randomPosition(cups int) int {
	return rand.Intn(cups) + 1
}
