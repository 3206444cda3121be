// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/Gregoor/matrix-neo/lib/ref"
)

// SyncFilter describes the /sync filter a chat client wants. It is sent
// inline with every request rather than uploaded, which keeps the
// client stateless across homeservers.
type SyncFilter struct {
	// TimelineLimit caps timeline events per room per response. Zero
	// leaves the server default.
	TimelineLimit int

	// TimelineTypes restricts timeline events. Empty means all types.
	TimelineTypes []ref.EventType

	// StateTypes restricts room state events. Empty means all types.
	StateTypes []ref.EventType

	// LazyLoadMembers asks the server to send only the m.room.member
	// events of senders present in the returned timeline.
	LazyLoadMembers bool
}

// Inline renders the filter as the JSON string /sync accepts in its
// filter query parameter. Presence and account data are always
// excluded.
func (f SyncFilter) Inline() (string, error) {
	timeline := map[string]any{}
	if f.TimelineLimit > 0 {
		timeline["limit"] = f.TimelineLimit
	}
	if len(f.TimelineTypes) > 0 {
		timeline["types"] = f.TimelineTypes
	}

	state := map[string]any{}
	if len(f.StateTypes) > 0 {
		state["types"] = f.StateTypes
	}
	if f.LazyLoadMembers {
		state["lazy_load_members"] = true
	}

	top := map[string]any{
		"room": map[string]any{
			"timeline":     timeline,
			"state":        state,
			"ephemeral":    map[string]any{"types": []string{}},
			"account_data": map[string]any{"types": []string{}},
		},
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, err := json.Marshal(top)
	if err != nil {
		return "", fmt.Errorf("messaging: encoding sync filter: %w", err)
	}
	return string(data), nil
}
