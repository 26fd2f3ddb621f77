// Command validate checks the game configuration JSON files in a
// configs directory. It verifies:
//   - JSON structure and required fields
//   - Cup count, player bounds and win score ranges
//   - Required message templates and their %d placeholders
//   - That two players can actually finish a game under the rules
//
// Usage:
//
//	validate [dir]
//
// The directory defaults to ./configs. The exit code is non-zero when
// any file fails validation.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cupgame-server/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single configuration JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("cannot read file: %v", err))
		return result
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Errors = append(result.Errors, playability(&config)...)
	if len(result.Errors) > 0 {
		result.Valid = false
		return result
	}

	result.Errors = append(result.Errors,
		fmt.Sprintf("%d cups, first to %d, %s", config.Cups, config.WinScore, describeRotation(&config)))
	return result
}

// playability checks rules that validate individually but make a game
// unplayable or degenerate in combination.
func playability(config *engine.GameConfig) []string {
	var problems []string

	if config.MaxPlayers == 1 {
		problems = append(problems, "max_players of 1 can never reach min_players")
	}
	if config.RoleSwapEvery > config.WinScore*2 {
		problems = append(problems,
			fmt.Sprintf("role_swap_every (%d) exceeds the longest possible game, roles would never rotate",
				config.RoleSwapEvery))
	}
	return problems
}

func describeRotation(config *engine.GameConfig) string {
	if config.RoleSwapEvery == 0 {
		return "fixed roles"
	}
	return fmt.Sprintf("roles swap every %d guesses", config.RoleSwapEvery)
}

// validateDir validates every .json file in dir, sorted by name.
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var results []ValidationResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		results = append(results, validateConfig(filepath.Join(dir, entry.Name())))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	results, err := validateDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Fprintf(os.Stderr, "no .json files in %s\n", dir)
		os.Exit(1)
	}

	failures := 0
	for _, r := range results {
		status := "OK"
		if !r.Valid {
			status = "FAIL"
			failures++
		}
		fmt.Printf("%-24s %s\n", r.File, status)
		for _, e := range r.Errors {
			fmt.Printf("    %s\n", e)
		}
	}

	fmt.Printf("\n%d of %d configurations valid\n", len(results)-failures, len(results))
	if failures > 0 {
		os.Exit(1)
	}
}
