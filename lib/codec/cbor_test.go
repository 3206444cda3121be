// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"

	"github.com/Gregoor/matrix-neo/lib/ref"
)

type cachedEvent struct {
	EventID ref.EventID    `json:"event_id"`
	Sender  ref.UserID     `json:"sender"`
	Content map[string]any `json:"content"`
}

func TestRoundTripPreservesIdentifiers(t *testing.T) {
	original := cachedEvent{
		EventID: ref.MustParseEventID("$abc"),
		Sender:  ref.MustParseUserID("@alice:matrix.org"),
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded cachedEvent
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.EventID != original.EventID || decoded.Sender != original.Sender {
		t.Errorf("identifiers: got %v/%v, want %v/%v", decoded.EventID, decoded.Sender, original.EventID, original.Sender)
	}
	if decoded.Content["body"] != "hi" {
		t.Errorf("content body = %v, want hi", decoded.Content["body"])
	}
}

func TestNestedMapsDecodeAsStringKeyed(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "value"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)["outer"].(map[string]any)
	if !ok {
		t.Fatalf("nested map decoded as %T, want map[string]any", decoded.(map[string]any)["outer"])
	}
	if outer["inner"] != "value" {
		t.Errorf("inner = %v, want value", outer["inner"])
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"b": 2, "a": 1, "c": 3}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal produced different bytes for the same value")
		}
	}
}
