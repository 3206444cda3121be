// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import (
	"sort"
	"strings"
	"sync"

	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/messaging"
)

// Member is one room member as seen through m.room.member state.
type Member struct {
	DisplayName string `json:"displayname,omitempty"`
	Membership  string `json:"membership"`
}

// maxHeroNames caps how many member names a computed room name lists.
const maxHeroNames = 3

// Room is one joined room. All methods are safe for concurrent use.
type Room struct {
	id           ref.RoomID
	self         ref.UserID
	historyLimit int

	mu       sync.RWMutex
	name     string
	alias    string
	heroes   []ref.UserID
	members  map[ref.UserID]Member
	events   []messaging.Event
	eventIDs map[ref.EventID]struct{}
	// firstPosition is the cache position of events[0]. Positions grow
	// by one per appended event and are never reused within a room.
	firstPosition int64

	timeline listenerSet[messaging.Event]
}

func newRoom(id ref.RoomID, self ref.UserID, historyLimit int) *Room {
	return &Room{
		id:           id,
		self:         self,
		historyLimit: historyLimit,
		members:      make(map[ref.UserID]Member),
		eventIDs:     make(map[ref.EventID]struct{}),
	}
}

// ID returns the room ID.
func (r *Room) ID() ref.RoomID { return r.id }

// Name returns the room's display name: its m.room.name, else its
// canonical alias, else the display names of up to three other members.
// A room with none of these has an empty name.
func (r *Room) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nameLocked()
}

func (r *Room) nameLocked() string {
	if r.name != "" {
		return r.name
	}
	if r.alias != "" {
		return r.alias
	}

	candidates := r.heroes
	if len(candidates) == 0 {
		for userID, member := range r.members {
			if member.Membership == "join" && userID != r.self {
				candidates = append(candidates, userID)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].String() < candidates[j].String()
		})
	}

	var names []string
	for _, userID := range candidates {
		if userID == r.self {
			continue
		}
		names = append(names, r.displayNameLocked(userID))
		if len(names) == maxHeroNames {
			break
		}
	}
	return strings.Join(names, ", ")
}

// DisplayName returns the member's display name, or the user ID's
// localpart when none is known.
func (r *Room) DisplayName(userID ref.UserID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.displayNameLocked(userID)
}

func (r *Room) displayNameLocked(userID ref.UserID) string {
	if member, ok := r.members[userID]; ok && member.DisplayName != "" {
		return member.DisplayName
	}
	if localpart := userID.Localpart(); localpart != "" {
		return localpart
	}
	return userID.String()
}

// Snapshot returns a copy of the room's timeline, oldest first.
func (r *Room) Snapshot() []messaging.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]messaging.Event, len(r.events))
	copy(snapshot, r.events)
	return snapshot
}

// OnTimelineEvent registers callback for every timeline event appended
// after this call, in delivery order. Callbacks run on the sync
// goroutine after the event is visible in Snapshot. The returned
// function unsubscribes and may be called more than once.
func (r *Room) OnTimelineEvent(callback func(messaging.Event)) (unsubscribe func()) {
	return r.timeline.add(callback)
}

// ListenerCount returns the number of registered timeline listeners.
func (r *Room) ListenerCount() int {
	return r.timeline.len()
}

// applyStateLocked folds one state event into the room summary.
func (r *Room) applyStateLocked(event messaging.Event) {
	if event.StateKey == nil {
		return
	}
	switch event.Type {
	case ref.EventTypeRoomName:
		r.name, _ = event.ContentString("name")
	case ref.EventTypeCanonicalAlias:
		r.alias, _ = event.ContentString("alias")
	case ref.EventTypeMember:
		userID, err := ref.ParseUserID(*event.StateKey)
		if err != nil {
			return
		}
		membership, _ := event.ContentString("membership")
		displayName, _ := event.ContentString("displayname")
		if membership == "leave" || membership == "ban" {
			delete(r.members, userID)
			return
		}
		r.members[userID] = Member{DisplayName: displayName, Membership: membership}
	}
}

// appendTimelineLocked appends events not already present and returns
// the appended ones with their cache positions. State events in the
// timeline are folded into the summary as well.
func (r *Room) appendTimelineLocked(events []messaging.Event) []positionedEvent {
	var appended []positionedEvent
	for _, event := range events {
		if event.EventID.IsZero() {
			continue
		}
		if _, seen := r.eventIDs[event.EventID]; seen {
			continue
		}
		r.applyStateLocked(event)
		position := r.firstPosition + int64(len(r.events))
		r.events = append(r.events, event)
		r.eventIDs[event.EventID] = struct{}{}
		appended = append(appended, positionedEvent{Position: position, Event: event})
	}
	return appended
}

// trimLocked drops the oldest events beyond historyLimit and returns
// the first position still kept.
func (r *Room) trimLocked() int64 {
	excess := len(r.events) - r.historyLimit
	if r.historyLimit <= 0 || excess <= 0 {
		return r.firstPosition
	}
	for _, event := range r.events[:excess] {
		delete(r.eventIDs, event.EventID)
	}
	r.events = append([]messaging.Event(nil), r.events[excess:]...)
	r.firstPosition += int64(excess)
	return r.firstPosition
}

// resetTimelineLocked discards the timeline after a gap (a limited sync
// response). Positions continue from where they were.
func (r *Room) resetTimelineLocked() {
	r.firstPosition += int64(len(r.events))
	r.events = nil
	r.eventIDs = make(map[ref.EventID]struct{})
}

func (r *Room) summaryLocked() roomSummary {
	members := make(map[string]Member, len(r.members))
	for userID, member := range r.members {
		members[userID.String()] = member
	}
	return roomSummary{
		Name:    r.name,
		Alias:   r.alias,
		Heroes:  append([]ref.UserID(nil), r.heroes...),
		Members: members,
	}
}

func (r *Room) restoreLocked(summary roomSummary, events []positionedEvent) {
	r.name = summary.Name
	r.alias = summary.Alias
	r.heroes = summary.Heroes
	for rawUserID, member := range summary.Members {
		if userID, err := ref.ParseUserID(rawUserID); err == nil {
			r.members[userID] = member
		}
	}
	if len(events) > 0 {
		r.firstPosition = events[0].Position
	}
	for _, stored := range events {
		r.events = append(r.events, stored.Event)
		r.eventIDs[stored.Event.EventID] = struct{}{}
	}
}
