// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/tui"
)

func testRooms() []Room {
	return []Room{
		newFakeRoom("!general:example.org", "General"),
		newFakeRoom("!random:example.org", "Random"),
		newFakeRoom("!ops:example.org", "Operations"),
	}
}

func TestRoomListCursorFollowsRoom(t *testing.T) {
	list := newRoomList()
	rooms := testRooms()
	list.setRooms(rooms)
	list.moveDown()
	if list.current().ID() != rooms[1].ID() {
		t.Fatalf("cursor on %s, want %s", list.current().ID(), rooms[1].ID())
	}

	// The same rooms in a different order keep the cursor on Random.
	list.setRooms([]Room{rooms[2], rooms[1], rooms[0]})
	if list.current().ID() != rooms[1].ID() {
		t.Errorf("cursor moved to %s after reorder", list.current().ID())
	}
	if list.cursor != 1 {
		t.Errorf("cursor index = %d, want 1", list.cursor)
	}
}

func TestRoomListCursorClamps(t *testing.T) {
	list := newRoomList()
	rooms := testRooms()
	list.setRooms(rooms)
	list.moveDown()
	list.moveDown()
	list.moveDown()
	if list.cursor != 2 {
		t.Fatalf("cursor = %d, want 2 at the end", list.cursor)
	}
	list.setRooms(rooms[:1])
	if list.cursor != 0 || list.current().ID() != rooms[0].ID() {
		t.Errorf("cursor not clamped: %d", list.cursor)
	}
	list.setRooms(nil)
	if list.current() != nil {
		t.Errorf("empty list has a current room")
	}
}

func TestRoomListFilterRanks(t *testing.T) {
	list := newRoomList()
	list.setRooms(testRooms())
	list.filter.SetValue("op")
	list.applyFilter()
	if len(list.visible) != 1 || list.visible[0].room.Name() != "Operations" {
		t.Fatalf("visible = %v", list.visible)
	}
	if len(list.visible[0].positions) != 2 {
		t.Errorf("positions = %v, want two highlighted runes", list.visible[0].positions)
	}
}

func TestRoomListView(t *testing.T) {
	list := newRoomList()
	rooms := testRooms()
	list.setRooms(rooms)
	view := list.view(roomListView{
		theme:  tui.DefaultTheme,
		width:  20,
		height: 6,
		openID: rooms[0].ID(),
		unread: map[ref.RoomID]bool{rooms[1].ID(): true},
		now:    time.Now(),
	})
	lines := strings.Split(ansi.Strip(view), "\n")
	if len(lines) != 6 {
		t.Fatalf("view has %d lines, want 6", len(lines))
	}
	if !strings.HasPrefix(lines[1], "▸ General") {
		t.Errorf("open room line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "• Random") {
		t.Errorf("unread room line = %q", lines[2])
	}
}

func TestHighlightMatches(t *testing.T) {
	style := lipgloss.NewStyle()
	got := ansi.Strip(highlightMatches("General", []int{0, 2}, style, lipgloss.Color("220")))
	if got != "General" {
		t.Errorf("highlighting changed the text: %q", got)
	}
	if plain := highlightMatches("General", nil, style, lipgloss.Color("220")); ansi.Strip(plain) != "General" {
		t.Errorf("plain = %q", plain)
	}
}
