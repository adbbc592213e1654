package lifecycle

import (
	"testing"
)

var allStates = []State{
	StateUnknown, StateStarting, StateRunning,
	StateStopping, StateStopped, StateFailed,
}

func TestState_Predicates(t *testing.T) {
	terminal := map[State]bool{StateStopped: true, StateFailed: true}
	for _, s := range allStates {
		t.Run(s.String(), func(t *testing.T) {
			if !s.Valid() {
				t.Errorf("State(%q).Valid() = false, want true", s)
			}
			if got := s.IsTerminal(); got != terminal[s] {
				t.Errorf("State(%q).IsTerminal() = %v, want %v", s, got, terminal[s])
			}
		})
	}

	for _, s := range []State{"", "bogus", "RUNNING", "paused", "draining"} {
		if s.Valid() {
			t.Errorf("State(%q).Valid() = true, want false", s)
		}
	}
}

func TestValidTransition(t *testing.T) {
	allowed := map[[2]State]bool{
		{StateUnknown, StateStarting}:  true,
		{StateUnknown, StateFailed}:    true,
		{StateStarting, StateRunning}:  true,
		{StateStarting, StateFailed}:   true,
		{StateStarting, StateStopping}: true,
		{StateRunning, StateStopping}:  true,
		{StateRunning, StateFailed}:    true,
		{StateStopping, StateStopped}:  true,
		{StateStopping, StateFailed}:   true,
		{StateStopped, StateStarting}:  true,
		{StateFailed, StateStarting}:   true,
	}

	// Every pair, so a transition added to the matrix without a test fails.
	for _, from := range allStates {
		for _, to := range allStates {
			want := allowed[[2]State{from, to}]
			if got := ValidTransition(from, to); got != want {
				t.Errorf("ValidTransition(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}

	if ValidTransition(State("nonexistent"), StateStarting) {
		t.Error("ValidTransition from an unknown state = true, want false")
	}
}
