package session

import (
	"errors"
	"fmt"
)

// State is the stage of a record → identify → recommend cycle.
type State int

const (
	Idle State = iota
	Recording
	Processing
	Error
	Results
)

var stateNames = [...]string{"idle", "recording", "processing", "error", "results"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state by name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Event moves a session between states.
type Event int

const (
	StartPressed Event = iota
	StopPressed
	IdentifyResolved
	IdentifyFailed
	RecommendationsResolved
	RecommendationsFailed
	Reset
)

var eventNames = [...]string{
	"startPressed", "stopPressed", "identifyResolved", "identifyFailed",
	"recommendationsResolved", "recommendationsFailed", "reset",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ErrInvalidTransition is returned for events not accepted in the current
// state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

var transitions = map[State]map[Event]State{
	Idle: {
		StartPressed: Recording,
	},
	Recording: {
		StopPressed: Processing,
		Reset:       Idle,
	},
	Processing: {
		IdentifyResolved:        Processing,
		IdentifyFailed:          Error,
		RecommendationsResolved: Results,
		RecommendationsFailed:   Error,
	},
	Error: {
		StartPressed: Recording,
		Reset:        Idle,
	},
	Results: {
		StartPressed: Recording,
		Reset:        Idle,
	},
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return s, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, e, s)
}
