// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"testing"

	"github.com/Gregoor/matrix-neo/lib/credstore"
)

var testDescriptor = credstore.SessionDescriptor{
	AccessToken: "syt_token",
	DeviceID:    "DEVICE1",
	HomeServer:  "https://matrix.example.org",
	UserID:      "@alice:example.org",
}

func TestTransition(t *testing.T) {
	failure := errors.New("boom")
	tests := []struct {
		name    string
		from    Kind
		event   eventKind
		want    Kind
		wantErr bool
	}{
		{name: "loading nothing stored", from: KindLoading, event: eventNothingStored, want: KindLoggedOut},
		{name: "loading stored", from: KindLoading, event: eventStored, want: KindActive},
		{name: "loading failed", from: KindLoading, event: eventLoadFailed, want: KindFailed},
		{name: "logged out login", from: KindLoggedOut, event: eventLoginStarted, want: KindAuthenticating},
		{name: "authenticating succeeded", from: KindAuthenticating, event: eventLoginSucceeded, want: KindActive},
		{name: "authenticating failed", from: KindAuthenticating, event: eventLoginFailed, want: KindLoggedOut},
		{name: "active startup failed", from: KindActive, event: eventActivationFailed, want: KindFailed},
		{name: "active revoked", from: KindActive, event: eventRevoked, want: KindLoggedOut},
		{name: "active logout", from: KindActive, event: eventLoggedOut, want: KindLoggedOut},
		{name: "failed retry", from: KindFailed, event: eventRetry, want: KindLoading},
		{name: "failed logout", from: KindFailed, event: eventLoggedOut, want: KindLoggedOut},

		{name: "second login while authenticating", from: KindAuthenticating, event: eventLoginStarted, wantErr: true},
		{name: "login while active", from: KindActive, event: eventLoginStarted, wantErr: true},
		{name: "login while loading", from: KindLoading, event: eventLoginStarted, wantErr: true},
		{name: "retry while active", from: KindActive, event: eventRetry, wantErr: true},
		{name: "logout while logged out", from: KindLoggedOut, event: eventLoggedOut, wantErr: true},
		{name: "stored after loading", from: KindLoggedOut, event: eventStored, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			current := State{Kind: test.from}
			next, err := transition(current, event{kind: test.event, descriptor: testDescriptor, err: failure})
			if test.wantErr {
				if err == nil {
					t.Fatalf("transition succeeded to %s, want error", next.Kind)
				}
				if next.Kind != test.from {
					t.Errorf("rejected transition changed state to %s", next.Kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if next.Kind != test.want {
				t.Errorf("next = %s, want %s", next.Kind, test.want)
			}
		})
	}
}

func TestTransitionCarriesErrors(t *testing.T) {
	failure := errors.New("bad password")
	next, err := transition(State{Kind: KindAuthenticating}, event{kind: eventLoginFailed, err: failure})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if !errors.Is(next.Err, failure) {
		t.Errorf("LoggedOut.Err = %v, want %v", next.Err, failure)
	}

	next, _ = transition(next, event{kind: eventLoginStarted})
	if next.Err != nil {
		t.Errorf("Authenticating should clear the previous error, got %v", next.Err)
	}
}

func TestDescriptorOnlyWhenActive(t *testing.T) {
	for _, kind := range []Kind{KindLoading, KindLoggedOut, KindAuthenticating, KindFailed} {
		state := State{Kind: kind, descriptor: testDescriptor}
		if _, ok := state.Descriptor(); ok {
			t.Errorf("Descriptor() available in %s", kind)
		}
	}

	active, err := transition(State{Kind: KindLoading}, event{kind: eventStored, descriptor: testDescriptor})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	descriptor, ok := active.Descriptor()
	if !ok {
		t.Fatal("Descriptor() unavailable in active state")
	}
	if descriptor != testDescriptor {
		t.Errorf("Descriptor() = %+v, want %+v", descriptor, testDescriptor)
	}

	loggedOut, _ := transition(active, event{kind: eventLoggedOut})
	if _, ok := loggedOut.Descriptor(); ok {
		t.Error("descriptor survived logout")
	}
}
