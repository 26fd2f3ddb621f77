// Command play is an interactive terminal client for the cup game.
//
// It connects to a running game server, prints game events and board
// renderings as they arrive, and reads commands from stdin:
//
//	hide N    hide the ball under cup N
//	guess N   guess that the ball is under cup N
//	move N    reposition to cup N
//	say TEXT  send a chat message
//	state     print the latest board
//	quit      leave the game
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"cupgame-server/client"
	"cupgame-server/protocol"
	"cupgame-server/render"
)

func main() {
	cmd := &cli.Command{
		Name:  "play",
		Usage: "Interactive cup game client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Value:   "127.0.0.1:12345",
				Usage:   "Game server address",
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Value:   defaultUsername(),
				Usage:   "Display name on the server",
			},
			&cli.IntFlag{
				Name:  "retries",
				Value: 5,
				Usage: "Connection attempts before giving up",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func defaultUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

func run(ctx context.Context, cmd *cli.Command) error {
	c := client.New(client.Options{
		Addr:        cmd.String("addr"),
		Username:    cmd.String("username"),
		MaxAttempts: int(cmd.Int("retries")),
	})
	defer c.Close()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := c.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	fmt.Printf("Connected to %s as %q (player %d)\n", cmd.String("addr"), cmd.String("username"), c.PlayerID())
	fmt.Println("Commands: hide N, guess N, move N, say TEXT, state, quit")

	go printEvents(c)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done := execute(c, line); done {
			return nil
		}
	}
	c.Quit()
	return scanner.Err()
}

// printEvents renders events from the server as they arrive.
func printEvents(c *client.Client) {
	for ev := range c.Events() {
		switch ev.Kind {
		case protocol.KindGameState:
			if state := c.GameState(); state != nil {
				fmt.Println(render.State(state, c.PlayerID()))
			}
		case protocol.KindError:
			fmt.Printf("! %s\n", ev.Text)
		default:
			fmt.Printf("> %s\n", ev.Text)
		}
	}
}

// execute runs one command line. It returns true when the session is over.
func execute(c *client.Client, line string) bool {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(verb) {
	case "hide", "guess", "move":
		var pos int
		pos, err = strconv.Atoi(rest)
		if err != nil {
			fmt.Printf("! usage: %s N\n", verb)
			return false
		}
		switch strings.ToLower(verb) {
		case "hide":
			err = c.Hide(pos)
		case "guess":
			err = c.Guess(pos)
		case "move":
			err = c.Move(pos)
		}
	case "say", "chat":
		if rest == "" {
			fmt.Println("! usage: say TEXT")
			return false
		}
		err = c.Chat(rest)
	case "state", "board":
		if state := c.GameState(); state != nil {
			fmt.Println(render.State(state, c.PlayerID()))
		} else {
			fmt.Println("! no game state yet")
		}
	case "quit", "exit":
		if err := c.Quit(); err != nil {
			fmt.Printf("! %v\n", err)
		}
		// Give the goodbye message a moment to arrive.
		time.Sleep(200 * time.Millisecond)
		return true
	case "help":
		fmt.Println("Commands: hide N, guess N, move N, say TEXT, state, quit")
	default:
		fmt.Printf("! unknown command %q (try help)\n", verb)
	}

	if err != nil {
		fmt.Printf("! %v\n", err)
	}
	return false
}
