// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/session"
	"github.com/Gregoor/matrix-neo/lib/timeline"
)

// sessionStateMsg carries a session controller transition.
type sessionStateMsg struct {
	state session.State
}

// roomsChangedMsg reports that the room list should be re-read.
type roomsChangedMsg struct{}

// syncStateMsg carries a sync loop state change of the live client.
type syncStateMsg struct {
	event matrixclient.SyncEvent
}

// roomActivityMsg reports new timeline events in a room.
type roomActivityMsg struct {
	roomID ref.RoomID
}

// timelineMsg carries a recomputed timeline of the selected room.
type timelineMsg struct {
	update timeline.Update
}

// bridgeBuffer absorbs bursts, such as one timeline update per event
// of a large /sync response.
const bridgeBuffer = 256

// Bridge carries notifications from the session controller, the sync
// goroutine and the timeline selector into the bubbletea loop. Its
// methods match the callback fields of session.Config and
// timeline.NewSelector. They block while the buffer is full, until the
// model catches up or the bridge is closed.
type Bridge struct {
	events    chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates an open bridge.
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, bridgeBuffer),
		done:   make(chan struct{}),
	}
}

func (b *Bridge) send(message tea.Msg) {
	select {
	case b.events <- message:
	case <-b.done:
	}
}

// SessionChanged is a session.Config.OnChange callback.
func (b *Bridge) SessionChanged(state session.State) { b.send(sessionStateMsg{state: state}) }

// RoomsChanged is a session.Config.OnRoomsReady and OnRoomsChanged
// callback.
func (b *Bridge) RoomsChanged() { b.send(roomsChangedMsg{}) }

// SyncStateChanged is a session.Config.OnSyncState callback.
func (b *Bridge) SyncStateChanged(event matrixclient.SyncEvent) { b.send(syncStateMsg{event: event}) }

// RoomActivity is a session.Config.OnRoomActivity callback.
func (b *Bridge) RoomActivity(roomID ref.RoomID) { b.send(roomActivityMsg{roomID: roomID}) }

// TimelineUpdated is the timeline.Selector update callback.
func (b *Bridge) TimelineUpdated(update timeline.Update) { b.send(timelineMsg{update: update}) }

// Close releases every blocked sender. Call it once the program has
// exited and before tearing down the session, whose shutdown still
// reports transitions.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// listen returns a command that waits for the next notification.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case message := <-b.events:
			return message
		case <-b.done:
			return nil
		}
	}
}
