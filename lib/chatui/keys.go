// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the chat interface. Printable keys
// are avoided outside the room list because the composer usually has
// focus.
type KeyMap struct {
	// Focus movement.
	FocusNext key.Binding
	Filter    key.Binding
	Escape    key.Binding

	// Room list navigation.
	Up     key.Binding
	Down   key.Binding
	Select key.Binding

	// Timeline scrolling, available from the composer too.
	PageUp   key.Binding
	PageDown key.Binding
	Bottom   key.Binding

	// Composer. Send is handled through compose.Composer.Submit, which
	// decides whether an enter press submits.
	Newline key.Binding

	// Session.
	Retry  key.Binding
	Logout key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	FocusNext: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "switch pane"),
	),
	Filter: key.NewBinding(
		key.WithKeys("ctrl+f"),
		key.WithHelp("C-f", "filter rooms"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "open room"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("PgUp", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("PgDn", "scroll down"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("End", "latest"),
	),
	Newline: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("M-Enter", "newline"),
	),
	Retry: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "retry"),
	),
	Logout: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("C-o", "log out"),
	),
	Help: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("F1", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}
