// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/Gregoor/matrix-neo/lib/credstore"
)

// Kind identifies which of the controller's states is current.
type Kind int

const (
	// KindLoading is the initial state: the credential store has not
	// been read yet.
	KindLoading Kind = iota
	// KindLoggedOut means no credential is stored. Err holds the last
	// login or session failure, if any.
	KindLoggedOut
	// KindAuthenticating means a login request is in flight.
	KindAuthenticating
	// KindActive means a descriptor is bound to a live client.
	KindActive
	// KindFailed means loading the credential or starting the client
	// failed. Retry returns to Loading.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLoggedOut:
		return "logged_out"
	case KindAuthenticating:
		return "authenticating"
	case KindActive:
		return "active"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is one controller state. The zero value is Loading.
type State struct {
	Kind Kind
	// Err is the failure that led into this state. Set on Failed, and
	// on LoggedOut after a failed login or a revoked session.
	Err error

	descriptor credstore.SessionDescriptor
}

// Descriptor returns the session descriptor of an Active state. It
// reports false for every other kind.
func (s State) Descriptor() (credstore.SessionDescriptor, bool) {
	if s.Kind != KindActive {
		return credstore.SessionDescriptor{}, false
	}
	return s.descriptor, true
}

func (s State) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s (%v)", s.Kind, s.Err)
	}
	return s.Kind.String()
}

type eventKind int

const (
	eventNothingStored eventKind = iota
	eventStored
	eventLoadFailed
	eventLoginStarted
	eventLoginSucceeded
	eventLoginFailed
	eventActivationFailed
	eventRevoked
	eventLoggedOut
	eventRetry
)

func (k eventKind) String() string {
	switch k {
	case eventNothingStored:
		return "nothing_stored"
	case eventStored:
		return "stored"
	case eventLoadFailed:
		return "load_failed"
	case eventLoginStarted:
		return "login_started"
	case eventLoginSucceeded:
		return "login_succeeded"
	case eventLoginFailed:
		return "login_failed"
	case eventActivationFailed:
		return "activation_failed"
	case eventRevoked:
		return "revoked"
	case eventLoggedOut:
		return "logged_out"
	case eventRetry:
		return "retry"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// event is an input to transition. descriptor is set for eventStored
// and eventLoginSucceeded; err for the failure events.
type event struct {
	kind       eventKind
	descriptor credstore.SessionDescriptor
	err        error
}

// transition returns the state that follows current on ev, or an error
// when ev is not legal in current. The full state machine:
//
//   - Loading: nothing_stored -> LoggedOut, stored -> Active,
//     load_failed -> Failed
//   - LoggedOut: login_started -> Authenticating
//   - Authenticating: login_succeeded -> Active, login_failed -> LoggedOut
//   - Active: activation_failed -> Failed, revoked -> LoggedOut,
//     logged_out -> LoggedOut
//   - Failed: retry -> Loading, logged_out -> LoggedOut
func transition(current State, ev event) (State, error) {
	invalid := func() (State, error) {
		return current, fmt.Errorf("session: invalid transition: %s on %s", current.Kind, ev.kind)
	}

	switch current.Kind {
	case KindLoading:
		switch ev.kind {
		case eventNothingStored:
			return State{Kind: KindLoggedOut}, nil
		case eventStored:
			return State{Kind: KindActive, descriptor: ev.descriptor}, nil
		case eventLoadFailed:
			return State{Kind: KindFailed, Err: ev.err}, nil
		}
	case KindLoggedOut:
		if ev.kind == eventLoginStarted {
			return State{Kind: KindAuthenticating}, nil
		}
	case KindAuthenticating:
		switch ev.kind {
		case eventLoginSucceeded:
			return State{Kind: KindActive, descriptor: ev.descriptor}, nil
		case eventLoginFailed:
			return State{Kind: KindLoggedOut, Err: ev.err}, nil
		}
	case KindActive:
		switch ev.kind {
		case eventActivationFailed:
			return State{Kind: KindFailed, Err: ev.err}, nil
		case eventRevoked:
			return State{Kind: KindLoggedOut, Err: ev.err}, nil
		case eventLoggedOut:
			return State{Kind: KindLoggedOut}, nil
		}
	case KindFailed:
		switch ev.kind {
		case eventRetry:
			return State{Kind: KindLoading}, nil
		case eventLoggedOut:
			return State{Kind: KindLoggedOut}, nil
		}
	}
	return invalid()
}
