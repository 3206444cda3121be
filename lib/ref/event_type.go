// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix event type. It is a named string rather
// than a struct: event types need no validation, the type only keeps
// them apart from state keys and message bodies at compile time.
type EventType string

// String returns the event type string.
func (t EventType) String() string { return string(t) }

// Event types the client reads or writes.
const (
	EventTypeMessage        EventType = "m.room.message"
	EventTypeRoomName       EventType = "m.room.name"
	EventTypeCanonicalAlias EventType = "m.room.canonical_alias"
	EventTypeMember         EventType = "m.room.member"
	EventTypeEncrypted      EventType = "m.room.encrypted"
)
