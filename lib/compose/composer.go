// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/messaging"
)

// KeyEnter is the Name of the submit key.
const KeyEnter = "enter"

// Key is a key press as the composer sees it.
type Key struct {
	Name  string
	Shift bool
}

// Outgoing is a submitted draft ready to send.
type Outgoing struct {
	RoomID ref.RoomID
	// Draft is the text as it was in the composer, for Restore.
	Draft   string
	Content messaging.MessageContent
}

// Sender delivers message content to a room. *matrixclient.Client
// implements it.
type Sender interface {
	SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error)
}

// Composer holds one draft per room. It is safe for concurrent use.
type Composer struct {
	mu     sync.Mutex
	drafts map[ref.RoomID]string
}

// New returns a Composer with no drafts.
func New() *Composer {
	return &Composer{drafts: make(map[ref.RoomID]string)}
}

// Draft returns the draft for roomID.
func (c *Composer) Draft(roomID ref.RoomID) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[roomID]
}

// SetDraft replaces the draft for roomID.
func (c *Composer) SetDraft(roomID ref.RoomID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		delete(c.drafts, roomID)
		return
	}
	c.drafts[roomID] = text
}

// Submit handles a key press in roomID's composer. It returns the
// message to send and true when key is Enter without Shift and the
// draft is not blank; the draft is cleared. Any other key, or a blank
// draft, returns false and leaves the draft alone.
func (c *Composer) Submit(roomID ref.RoomID, key Key) (Outgoing, bool) {
	if key.Name != KeyEnter || key.Shift || roomID.IsZero() {
		return Outgoing{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	draft := c.drafts[roomID]
	body := strings.TrimSpace(draft)
	if body == "" {
		return Outgoing{}, false
	}
	delete(c.drafts, roomID)
	return Outgoing{RoomID: roomID, Draft: draft, Content: Render(body)}, true
}

// Restore puts outgoing's text back as the draft for its room, unless
// something new has been typed there since. It reports whether the
// draft was restored.
func (c *Composer) Restore(outgoing Outgoing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drafts[outgoing.RoomID] != "" {
		return false
	}
	c.drafts[outgoing.RoomID] = outgoing.Draft
	return true
}

// Send delivers outgoing through sender. Failures are returned as
// *matrixclient.SendError.
func Send(ctx context.Context, sender Sender, outgoing Outgoing) (ref.EventID, error) {
	eventID, err := sender.SendMessage(ctx, outgoing.RoomID, outgoing.Content)
	if err != nil {
		var sendErr *matrixclient.SendError
		if !errors.As(err, &sendErr) {
			err = &matrixclient.SendError{RoomID: outgoing.RoomID, Err: err}
		}
		return ref.EventID{}, err
	}
	return eventID, nil
}
