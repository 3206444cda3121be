// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"sync"
	"time"

	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/messaging"
)

// Room is the part of a live room the selector needs.
// *matrixclient.Room implements it.
type Room interface {
	ID() ref.RoomID
	Snapshot() []messaging.Event
	OnTimelineEvent(callback func(messaging.Event)) (unsubscribe func())
}

// Update is one computed view of the selected room's timeline.
// Generation identifies the selection it belongs to; Sequence orders
// updates within a generation. An update whose Generation is not the
// selector's current one is stale.
type Update struct {
	Generation uint64
	Sequence   uint64
	// RoomID is zero when nothing is selected.
	RoomID   ref.RoomID
	Messages []Message
	Groups   []DayGroup
}

// Subscription owns one timeline listener. Release is idempotent.
type Subscription struct {
	once        sync.Once
	unsubscribe func()
}

func newSubscription(unsubscribe func()) *Subscription {
	return &Subscription{unsubscribe: unsubscribe}
}

// Release removes the listener.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.unsubscribe)
}

// Selector holds at most one selected room and at most one live
// subscription to its timeline.
type Selector struct {
	location *time.Location
	onUpdate func(Update)

	mu           sync.Mutex
	generation   uint64
	sequence     uint64
	room         Room
	subscription *Subscription
}

// NewSelector returns a selector that groups days in location and
// reports recomputations triggered by new events to onUpdate. onUpdate
// runs on the goroutine that delivered the event, outside the
// selector's lock; it may be nil.
func NewSelector(location *time.Location, onUpdate func(Update)) *Selector {
	if location == nil {
		location = time.UTC
	}
	return &Selector{location: location, onUpdate: onUpdate}
}

// Select makes room the selected room, or clears the selection when
// room is nil. The previous subscription is released before anything
// else happens. The returned update reflects the room's current
// snapshot.
func (s *Selector) Select(room Room) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscription.Release()
	s.subscription = nil
	s.room = nil
	s.generation++
	s.sequence = 0
	generation := s.generation

	if room == nil {
		return Update{Generation: generation}
	}
	s.room = room
	// The callback takes s.mu, so recomputations it triggers wait
	// until this initial computation is done.
	s.subscription = newSubscription(room.OnTimelineEvent(func(messaging.Event) {
		s.recompute(generation)
	}))
	return s.computeLocked()
}

// Room returns the selected room, or nil.
func (s *Selector) Room() Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Generation returns the current selection's generation.
func (s *Selector) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// IsCurrent reports whether update belongs to the current selection.
func (s *Selector) IsCurrent(update Update) bool {
	return update.Generation == s.Generation()
}

// Close releases the subscription.
func (s *Selector) Close() {
	s.Select(nil)
}

func (s *Selector) recompute(generation uint64) {
	s.mu.Lock()
	if s.generation != generation || s.room == nil {
		s.mu.Unlock()
		return
	}
	update := s.computeLocked()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(update)
	}
}

func (s *Selector) computeLocked() Update {
	s.sequence++
	messages := Messages(s.room.Snapshot())
	return Update{
		Generation: s.generation,
		Sequence:   s.sequence,
		RoomID:     s.room.ID(),
		Messages:   messages,
		Groups:     Group(messages, s.location),
	}
}
