// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/tui"
)

// roomEntry is one visible row of the room list.
type roomEntry struct {
	room Room
	// positions are the rune indices of the name matched by the
	// filter, for highlighting.
	positions []int
}

// roomList is the left pane: every joined room, narrowed by an
// optional fuzzy filter. The cursor follows a room ID, not an index,
// so it stays on the same room while the list reorders.
type roomList struct {
	rooms   []Room
	visible []roomEntry

	filter textinput.Model

	cursor   int
	offset   int
	cursorID ref.RoomID
}

func newRoomList() roomList {
	filter := textinput.New()
	filter.Placeholder = "filter rooms"
	filter.Prompt = "/ "
	filter.CharLimit = 128
	return roomList{filter: filter}
}

// setRooms replaces the room set and reapplies the filter.
func (list *roomList) setRooms(rooms []Room) {
	list.rooms = rooms
	list.applyFilter()
}

// applyFilter rebuilds the visible rows from the filter text. With no
// filter the rooms keep their client order; otherwise they are ranked
// by match score.
func (list *roomList) applyFilter() {
	names := make([]string, len(list.rooms))
	for index, room := range list.rooms {
		names[index] = room.Name()
	}
	ranked := tui.FuzzyRank(names, list.filter.Value())

	visible := make([]roomEntry, 0, len(ranked))
	for _, match := range ranked {
		visible = append(visible, roomEntry{
			room:      list.rooms[match.Index],
			positions: match.Positions,
		})
	}
	list.visible = visible
	list.restoreCursor()
}

// restoreCursor puts the cursor back on cursorID, or clamps it when
// that room is no longer visible.
func (list *roomList) restoreCursor() {
	if !list.cursorID.IsZero() {
		for index, entry := range list.visible {
			if entry.room.ID() == list.cursorID {
				list.cursor = index
				return
			}
		}
	}
	if list.cursor >= len(list.visible) {
		list.cursor = len(list.visible) - 1
	}
	if list.cursor < 0 {
		list.cursor = 0
	}
	list.syncCursorID()
}

func (list *roomList) syncCursorID() {
	if list.cursor < len(list.visible) {
		list.cursorID = list.visible[list.cursor].room.ID()
	} else {
		list.cursorID = ref.RoomID{}
	}
}

func (list *roomList) moveUp() {
	if list.cursor > 0 {
		list.cursor--
		list.syncCursorID()
	}
}

func (list *roomList) moveDown() {
	if list.cursor < len(list.visible)-1 {
		list.cursor++
		list.syncCursorID()
	}
}

// current returns the room under the cursor, or nil when the list is
// empty.
func (list roomList) current() Room {
	if list.cursor < 0 || list.cursor >= len(list.visible) {
		return nil
	}
	return list.visible[list.cursor].room
}

// find returns the room with roomID among all rooms, filtered or not.
func (list roomList) find(roomID ref.RoomID) Room {
	for _, room := range list.rooms {
		if room.ID() == roomID {
			return room
		}
	}
	return nil
}

// clampOffset scrolls so the cursor row is inside a window of height
// rows.
func (list *roomList) clampOffset(height int) {
	if height <= 0 {
		list.offset = 0
		return
	}
	if list.cursor < list.offset {
		list.offset = list.cursor
	}
	if list.cursor >= list.offset+height {
		list.offset = list.cursor - height + 1
	}
	if maxOffset := max(len(list.visible)-height, 0); list.offset > maxOffset {
		list.offset = maxOffset
	}
}

// roomListView carries what the list needs from the model to render.
type roomListView struct {
	theme     tui.Theme
	width     int
	height    int
	focused   bool
	filtering bool
	openID    ref.RoomID
	unread    map[ref.RoomID]bool
	activity  *tui.ActivityTracker
	now       time.Time
}

// view renders exactly height lines of width columns.
func (list roomList) view(options roomListView) string {
	theme := options.theme
	var lines []string

	header := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	if options.filtering || list.filter.Value() != "" {
		list.filter.Width = max(options.width-3, 1)
		lines = append(lines, ansi.Truncate(list.filter.View(), options.width, ""))
	} else {
		lines = append(lines, header.Render(ansi.Truncate("Rooms", options.width, "")))
	}

	rowsHeight := options.height - 1
	if len(list.visible) == 0 {
		message := "No rooms"
		if list.filter.Value() != "" {
			message = "No matching rooms"
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.FaintText).Render(message))
	}
	list.clampOffset(rowsHeight)
	for index := list.offset; index < len(list.visible) && len(lines) < options.height; index++ {
		lines = append(lines, list.renderRow(options, index))
	}
	for len(lines) < options.height {
		lines = append(lines, "")
	}

	padded := lipgloss.NewStyle().Width(options.width)
	for index, line := range lines {
		lines[index] = padded.Render(line)
	}
	return strings.Join(lines[:options.height], "\n")
}

func (list roomList) renderRow(options roomListView, index int) string {
	theme := options.theme
	entry := list.visible[index]
	roomID := entry.room.ID()

	marker := "  "
	switch {
	case roomID == options.openID:
		marker = "▸ "
	case options.unread[roomID]:
		marker = "• "
	}

	style := lipgloss.NewStyle().Foreground(theme.NormalText)
	if options.unread[roomID] {
		style = style.Bold(true)
	}
	if options.activity != nil && options.activity.Intensity(roomID.String(), options.now) > 0.5 {
		style = style.Background(theme.ActivityAccent)
	}
	if index == list.cursor && options.focused {
		style = style.Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)
	}

	nameWidth := max(options.width-ansi.StringWidth(marker), 1)
	name := ansi.Truncate(entry.room.Name(), nameWidth, "…")
	return style.Render(marker) + highlightMatches(name, entry.positions, style, theme.MatchForeground)
}

// highlightMatches renders text in style, with the runes at positions
// in the match color.
func highlightMatches(text string, positions []int, style lipgloss.Style, match lipgloss.Color) string {
	if len(positions) == 0 {
		return style.Render(text)
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}
	highlight := style.Foreground(match).Bold(true)

	var builder strings.Builder
	var run []rune
	runMatched := false
	flush := func() {
		if len(run) == 0 {
			return
		}
		if runMatched {
			builder.WriteString(highlight.Render(string(run)))
		} else {
			builder.WriteString(style.Render(string(run)))
		}
		run = run[:0]
	}
	for index, character := range []rune(text) {
		if matched[index] != runMatched {
			flush()
			runMatched = matched[index]
		}
		run = append(run, character)
	}
	flush()
	return builder.String()
}
