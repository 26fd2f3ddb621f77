package main

// Strategy decides the bot's next action from a state snapshot.
//
// Hiding is uniformly random so a counting opponent gains nothing.
// Guessing sweeps the cups in a shuffled order, restarting the sweep
// after every completed pass; against a random hider this is as good as
// any strategy, and it is easy to follow in the logs.
type Strategy struct {
	cups  int
	order []int
	next  int
}

func NewStrategy(cups int) *Strategy {
	s := &Strategy{cups: cups}
	s.reshuffle()
	return s
}

func (s *Strategy) reshuffle() {
	s.order = make([]int, s.cups)
	for i := range s.order {
		s.order[i] = i + 1
	}
	for i := len(s.order) - 1; i > 0; i-- {
		j := randomPosition(i+1) - 1
		s.order[i], s.order[j] = s.order[j], s.order[i]
	}
	s.next = 0
}

// Plan returns the bot's action for the given snapshot, or nil when it
// is not the bot's turn.
func (s *Strategy) Plan(state *gameState, myID int) *message {
	if state.Phase != "active" || state.Turn != myID {
		return nil
	}

	role := ""
	for _, p := range state.Players {
		if p.ID == myID {
			role = p.Role
		}
	}

	switch role {
	case "hider":
		return &message{Type: "hide", Position: randomPosition(s.cups)}
	case "guesser":
		return &message{Type: "guess", Position: s.nextGuess()}
	default:
		// No role in this round; pass the turn along.
		return &message{Type: "move", Position: randomPosition(s.cups)}
	}
}

func (s *Strategy) nextGuess() int {
	if s.next >= len(s.order) {
		s.reshuffle()
	}
	g := s.order[s.next]
	s.next++
	return g
}
