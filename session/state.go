package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned by Next for events a state does not accept.
var ErrInvalidTransition = errors.New("invalid session transition")

// State of the admin session
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event drives a session transition
type Event int

const (
	LoginRequested Event = iota
	LoginFailed
	SignedIn
	SignedOut
	TokenRejected
)

func (e Event) String() string {
	switch e {
	case LoginRequested:
		return "login-requested"
	case LoginFailed:
		return "login-failed"
	case SignedIn:
		return "signed-in"
	case SignedOut:
		return "signed-out"
	case TokenRejected:
		return "token-rejected"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// transitions is the complete table; pairs not listed are rejected.
var transitions = map[State]map[Event]State{
	Unauthenticated: {
		LoginRequested: Authenticating,
		LoginFailed:    Unauthenticated,
		SignedIn:       Authenticated,
		SignedOut:      Unauthenticated,
		TokenRejected:  Unauthenticated,
	},
	Authenticating: {
		LoginFailed:   Unauthenticated,
		SignedIn:      Authenticated,
		SignedOut:     Unauthenticated,
		TokenRejected: Unauthenticated,
	},
	Authenticated: {
		SignedIn:  Authenticated,
		SignedOut: Unauthenticated,
	},
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}
