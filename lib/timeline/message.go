// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"time"

	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/messaging"
)

// Message is a timeline event that carries a text body.
type Message struct {
	EventID   ref.EventID
	Sender    ref.UserID
	Timestamp time.Time
	Body      string
}

// MessageFromEvent converts an m.room.message event with a non-empty
// string body. Anything else reports false.
func MessageFromEvent(event messaging.Event) (Message, bool) {
	if event.Type != ref.EventTypeMessage {
		return Message{}, false
	}
	body, ok := event.ContentString("body")
	if !ok || body == "" {
		return Message{}, false
	}
	return Message{
		EventID:   event.EventID,
		Sender:    event.Sender,
		Timestamp: event.Time(),
		Body:      body,
	}, true
}

// Messages filters events to messages, preserving order.
func Messages(events []messaging.Event) []Message {
	messages := make([]Message, 0, len(events))
	for _, event := range events {
		if message, ok := MessageFromEvent(event); ok {
			messages = append(messages, message)
		}
	}
	return messages
}
