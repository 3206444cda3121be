// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "time"

// ActivityDecay is how long a room stays highlighted after a message
// arrives. Intensity falls linearly from 1 to 0 over this duration.
const ActivityDecay = 4 * time.Second

// ActivityTickInterval is the re-render interval while any room is
// highlighted.
const ActivityTickInterval = 100 * time.Millisecond

// ActivityTracker records when items last saw activity so the view can
// fade a highlight out. It is not safe for concurrent use. The
// bubbletea model owns it.
type ActivityTracker struct {
	touched map[string]time.Time
}

// NewActivityTracker creates an empty tracker.
func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{touched: make(map[string]time.Time)}
}

// Touch records activity on itemID, restarting its decay.
func (tracker *ActivityTracker) Touch(itemID string, now time.Time) {
	tracker.touched[itemID] = now
}

// Intensity returns 1 right after Touch, falling to 0 after
// ActivityDecay. Items never touched are 0.
func (tracker *ActivityTracker) Intensity(itemID string, now time.Time) float64 {
	touched, ok := tracker.touched[itemID]
	if !ok {
		return 0
	}
	elapsed := now.Sub(touched)
	if elapsed < 0 {
		return 1
	}
	if elapsed >= ActivityDecay {
		return 0
	}
	return 1 - float64(elapsed)/float64(ActivityDecay)
}

// Forget clears itemID, as when the user opens the room.
func (tracker *ActivityTracker) Forget(itemID string) {
	delete(tracker.touched, itemID)
}

// Active reports whether any item is still highlighted, dropping the
// ones that have fully decayed. The tick timer runs while it is true.
func (tracker *ActivityTracker) Active(now time.Time) bool {
	active := false
	for itemID, touched := range tracker.touched {
		if now.Sub(touched) < ActivityDecay {
			active = true
			continue
		}
		delete(tracker.touched, itemID)
	}
	return active
}
