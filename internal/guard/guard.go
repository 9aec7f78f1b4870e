// Package guard decides what a request may see given the visitor's session state.
package guard

import (
	"sync"

	"hopper/internal/session"
)

// State is derived purely from a session snapshot.
type State int

const (
	Loading State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Evaluate maps a snapshot to a guard state. Loading wins over everything else.
func Evaluate(s session.Snapshot) State {
	switch {
	case s.IsLoading:
		return Loading
	case s.User == nil:
		return Anonymous
	default:
		return Authenticated
	}
}

// Access classifies a route.
type Access int

const (
	// Protected routes require a signed-in user.
	Protected Access = iota
	// Entry routes are the login and registration screens.
	Entry
	// Open routes render for everyone once bootstrap is done.
	Open
)

// Outcome is what the caller should do with a request.
type Outcome int

const (
	Render Outcome = iota
	Wait
	Redirect
)

// Decision is the result of Decide. Target is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Routes names the two redirect targets.
type Routes struct {
	Login string
	Home  string
}

// Decide applies the guard rules for a route of the given access kind.
func (r Routes) Decide(state State, access Access) Decision {
	switch state {
	case Loading:
		return Decision{Outcome: Wait}
	case Anonymous:
		if access == Protected {
			return Decision{Outcome: Redirect, Target: r.Login}
		}
	case Authenticated:
		if access == Entry {
			return Decision{Outcome: Redirect, Target: r.Home}
		}
	}
	return Decision{Outcome: Render}
}

// Source is anything that publishes session snapshots.
type Source interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) func()
}

// Follow calls fn with the current state and again every time the state changes. The returned
// func stops following. fn is never called concurrently.
func Follow(src Source, fn func(State)) func() {
	var mu sync.Mutex
	mu.Lock()
	defer mu.Unlock()

	var last State
	stop := src.Subscribe(func(s session.Snapshot) {
		next := Evaluate(s)
		mu.Lock()
		defer mu.Unlock()
		if next == last {
			return
		}
		last = next
		fn(next)
	})

	last = Evaluate(src.Snapshot())
	fn(last)
	return stop
}
