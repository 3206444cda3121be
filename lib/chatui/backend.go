// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"

	"github.com/Gregoor/matrix-neo/lib/compose"
	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/secret"
	"github.com/Gregoor/matrix-neo/lib/session"
	"github.com/Gregoor/matrix-neo/lib/timeline"
)

// Room is a joined room as the interface shows it.
// *matrixclient.Room implements it.
type Room interface {
	timeline.Room
	Name() string
	DisplayName(userID ref.UserID) string
}

// Backend is what the model drives. Every method but State and Rooms
// may block and is only called from commands, never from Update.
type Backend interface {
	State() session.State
	Rooms() []Room

	Start(ctx context.Context) error
	Login(ctx context.Context, username string, password *secret.Buffer) error
	Logout(ctx context.Context) error
	Retry(ctx context.Context) error
	Send(ctx context.Context, outgoing compose.Outgoing) (ref.EventID, error)
}

// SessionBackend adapts a session.Controller to Backend.
type SessionBackend struct {
	*session.Controller
}

var _ Backend = SessionBackend{}

// Rooms returns the live client's rooms, or nil before the first sync.
func (b SessionBackend) Rooms() []Room {
	rooms := b.Controller.Rooms()
	if rooms == nil {
		return nil
	}
	converted := make([]Room, len(rooms))
	for index, room := range rooms {
		converted[index] = room
	}
	return converted
}

// Send delivers outgoing through the live client.
func (b SessionBackend) Send(ctx context.Context, outgoing compose.Outgoing) (ref.EventID, error) {
	client := b.Controller.Client()
	if client == nil {
		return ref.EventID{}, &matrixclient.SendError{RoomID: outgoing.RoomID, Err: matrixclient.ErrNotStarted}
	}
	return compose.Send(ctx, client, outgoing)
}
