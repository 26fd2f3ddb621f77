package engine

import (
	"fmt"
	"strings"
)

// GameConfig represents the game rules loaded from JSON
type GameConfig struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Cups          int    `json:"cups"`
	MinPlayers    int    `json:"min_players"`
	MaxPlayers    int    `json:"max_players"` // 0 means unlimited
	WinScore      int    `json:"win_score"`
	RoleSwapEvery int    `json:"role_swap_every"` // 0 disables rotation
	Messages      struct {
		Welcome        string `json:"welcome"`
		Goodbye        string `json:"goodbye"`
		GameStart      string `json:"game_start"`
		Waiting        string `json:"waiting"`
		Hidden         string `json:"hidden"`
		CorrectGuess   string `json:"correct_guess"`
		IncorrectGuess string `json:"incorrect_guess"`
		Winner         string `json:"winner"`
		RolesSwapped   string `json:"roles_swapped"`
	} `json:"messages"`
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is required")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.Cups < MinCups || config.Cups > MaxCups {
		return fmt.Errorf("config validation: cups must be between %d and %d, got %d", MinCups, MaxCups, config.Cups)
	}
	if config.MinPlayers < MinPlayersCap {
		return fmt.Errorf("config validation: min_players must be at least %d, got %d", MinPlayersCap, config.MinPlayers)
	}
	if config.MaxPlayers != 0 && config.MaxPlayers < config.MinPlayers {
		return fmt.Errorf("config validation: max_players (%d) must be 0 or at least min_players (%d)",
			config.MaxPlayers, config.MinPlayers)
	}
	if config.WinScore < MinWinScore || config.WinScore > MaxWinScore {
		return fmt.Errorf("config validation: win_score must be between %d and %d, got %d", MinWinScore, MaxWinScore, config.WinScore)
	}
	if config.RoleSwapEvery < 0 {
		return fmt.Errorf("config validation: role_swap_every must not be negative, got %d", config.RoleSwapEvery)
	}

	// Validate message templates
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.CorrectGuess == "" {
		return fmt.Errorf("config validation: messages.correct_guess is required")
	}
	if config.Messages.Winner == "" {
		return fmt.Errorf("config validation: messages.winner is required")
	}

	// Validate format strings
	for field, tmpl := range map[string]string{
		"welcome":       config.Messages.Welcome,
		"correct_guess": config.Messages.CorrectGuess,
		"winner":        config.Messages.Winner,
	} {
		if !strings.Contains(tmpl, "%d") {
			return fmt.Errorf("config validation: messages.%s must contain %%d for the player ID", field)
		}
	}

	return nil
}

// DefaultConfig returns the classic three-cup game
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:          "classic",
		Description:   "Classic three-cup hide and guess",
		Cups:          3,
		MinPlayers:    2,
		MaxPlayers:    0,
		WinScore:      3,
		RoleSwapEvery: 2,
	}
	config.Messages.Welcome = "Welcome, Player %d!"
	config.Messages.Goodbye = "Goodbye, Player %d!"
	config.Messages.GameStart = "The game is on! Player %d hides first."
	config.Messages.Waiting = "Waiting for more players..."
	config.Messages.Hidden = "Player %d hid the marker. Take a guess!"
	config.Messages.CorrectGuess = "Player %d guessed correctly!"
	config.Messages.IncorrectGuess = "Player %d guessed wrong."
	config.Messages.Winner = "Player %d wins the game!"
	config.Messages.RolesSwapped = "Roles swapped: Player %d now hides."
	return config
}
