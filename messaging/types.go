// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"time"

	"github.com/Gregoor/matrix-neo/lib/ref"
)

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string          `json:"type"`
	Identifier               *UserIdentifier `json:"identifier,omitempty"`
	Password                 string          `json:"password"`
	DeviceID                 string          `json:"device_id,omitempty"`
	InitialDeviceDisplayName string          `json:"initial_device_display_name,omitempty"`
}

// UserIdentifier identifies the account in a login request.
type UserIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// MessageContent is the content of an m.room.message event.
type MessageContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

// FormatHTML is the only rich-text format Matrix defines.
const FormatHTML = "org.matrix.custom.html"

// NewTextMessage creates a plain m.text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: "m.text", Body: body}
}

// RoomNameContent is the content of an m.room.name state event.
type RoomNameContent struct {
	Name string `json:"name"`
}

// Event is a Matrix event as delivered by /sync.
type Event struct {
	EventID        ref.EventID    `json:"event_id"`
	Type           ref.EventType  `json:"type"`
	Sender         ref.UserID     `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	RoomID         ref.RoomID     `json:"room_id,omitempty"`
	StateKey       *string        `json:"state_key,omitempty"`
	Unsigned       *EventUnsigned `json:"unsigned,omitempty"`
}

// EventUnsigned holds optional unsigned data attached to events.
type EventUnsigned struct {
	Age           int64  `json:"age,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Time returns OriginServerTS as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.OriginServerTS)
}

// ContentString returns Content[key] when it is a string, and whether
// it was.
func (e Event) ContentString(key string) (string, bool) {
	value, ok := e.Content[key].(string)
	return value, ok
}

// IsState reports whether the event carries a state key.
func (e Event) IsState() bool {
	return e.StateKey != nil
}

// SyncOptions controls one /sync request.
type SyncOptions struct {
	Since      string        // next_batch from the previous response; empty for initial sync
	Timeout    time.Duration // server-side long-poll duration
	SetTimeout bool          // send the timeout parameter (distinguishes "not set" from 0)
	Filter     string        // filter ID or inline JSON filter
	FullState  bool          // request full room state even with Since set
}

// SyncResponse is the top-level /sync response.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection holds per-room sync data by membership. Map keys decode
// through ref.RoomID's TextUnmarshaler, so malformed IDs fail the whole
// response.
type RoomsSection struct {
	Join  map[ref.RoomID]JoinedRoom `json:"join,omitempty"`
	Leave map[ref.RoomID]LeftRoom   `json:"leave,omitempty"`
}

// JoinedRoom holds sync data for a joined room.
type JoinedRoom struct {
	Summary  RoomSummary     `json:"summary"`
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// RoomSummary carries the server's room-name hints. Heroes is only
// present when it changed since the last sync.
type RoomSummary struct {
	Heroes             []ref.UserID `json:"m.heroes,omitempty"`
	JoinedMemberCount  *int         `json:"m.joined_member_count,omitempty"`
	InvitedMemberCount *int         `json:"m.invited_member_count,omitempty"`
}

// LeftRoom holds sync data for a room the user left or was removed
// from.
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// TimelineSection holds timeline events. Limited means events between
// the previous batch and these were omitted.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection holds state events.
type StateSection struct {
	Events []Event `json:"events"`
}

// SendEventResponse is returned by SendEvent.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}
