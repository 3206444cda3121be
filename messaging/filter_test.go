// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"testing"

	"github.com/Gregoor/matrix-neo/lib/ref"
)

func decodeFilter(t *testing.T, filter SyncFilter) map[string]any {
	t.Helper()
	inline, err := filter.Inline()
	if err != nil {
		t.Fatalf("Inline failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(inline), &decoded); err != nil {
		t.Fatalf("inline filter is not JSON: %v (%s)", err, inline)
	}
	return decoded
}

func stringList(t *testing.T, value any) []string {
	t.Helper()
	items, ok := value.([]any)
	if !ok {
		t.Fatalf("value %v is not a list", value)
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.(string)
		if !ok {
			t.Fatalf("list entry %v is not a string", item)
		}
		result = append(result, text)
	}
	return result
}

func TestSyncFilterInline(t *testing.T) {
	decoded := decodeFilter(t, SyncFilter{
		TimelineLimit:   25,
		TimelineTypes:   []ref.EventType{ref.EventTypeMessage, ref.EventTypeMember},
		StateTypes:      []ref.EventType{ref.EventTypeRoomName},
		LazyLoadMembers: true,
	})

	room := decoded["room"].(map[string]any)
	timeline := room["timeline"].(map[string]any)
	if timeline["limit"] != float64(25) {
		t.Errorf("timeline.limit = %v, want 25", timeline["limit"])
	}
	timelineTypes := stringList(t, timeline["types"])
	if len(timelineTypes) != 2 || timelineTypes[0] != "m.room.message" || timelineTypes[1] != "m.room.member" {
		t.Errorf("timeline.types = %v, want [m.room.message m.room.member]", timelineTypes)
	}

	state := room["state"].(map[string]any)
	if stateTypes := stringList(t, state["types"]); len(stateTypes) != 1 || stateTypes[0] != "m.room.name" {
		t.Errorf("state.types = %v, want [m.room.name]", stateTypes)
	}
	if state["lazy_load_members"] != true {
		t.Errorf("state.lazy_load_members = %v, want true", state["lazy_load_members"])
	}

	for _, section := range []string{"presence", "account_data"} {
		types := stringList(t, decoded[section].(map[string]any)["types"])
		if len(types) != 0 {
			t.Errorf("%s.types = %v, want empty", section, types)
		}
	}
	for _, section := range []string{"ephemeral", "account_data"} {
		types := stringList(t, room[section].(map[string]any)["types"])
		if len(types) != 0 {
			t.Errorf("room.%s.types = %v, want empty", section, types)
		}
	}
}

func TestSyncFilterZeroValue(t *testing.T) {
	decoded := decodeFilter(t, SyncFilter{})

	room := decoded["room"].(map[string]any)
	timeline := room["timeline"].(map[string]any)
	if len(timeline) != 0 {
		t.Errorf("timeline = %v, want no constraints", timeline)
	}
	state := room["state"].(map[string]any)
	if len(state) != 0 {
		t.Errorf("state = %v, want no constraints", state)
	}
}
