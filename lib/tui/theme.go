// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette of the chat interface. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row in the room list.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// SenderColors is the palette sender names are hashed into, so one
	// user keeps one color across rooms and restarts.
	SenderColors [6]lipgloss.Color

	// Connection indicator colors.
	StatusOnline     lipgloss.Color
	StatusConnecting lipgloss.Color
	StatusOffline    lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	DaySeparator     lipgloss.Color
	ErrorText        lipgloss.Color

	// ActivityAccent tints rooms that just received messages.
	ActivityAccent lipgloss.Color

	// Fuzzy filter match highlighting.
	MatchForeground lipgloss.Color

	// Link previews.
	LinkForeground lipgloss.Color
	EmbedBorder    lipgloss.Color

	// Overlay boxes (help, errors).
	OverlayForeground lipgloss.Color
	OverlayBackground lipgloss.Color
}

// SenderColor returns the palette color for a sender ID.
func (theme Theme) SenderColor(senderID string) lipgloss.Color {
	hash := fnv.New32a()
	hash.Write([]byte(senderID))
	return theme.SenderColors[hash.Sum32()%uint32(len(theme.SenderColors))]
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	SenderColors: [6]lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("114"), // green
		lipgloss.Color("141"), // light purple
		lipgloss.Color("208"), // orange
		lipgloss.Color("44"),  // teal
		lipgloss.Color("211"), // pink
	},

	StatusOnline:     lipgloss.Color("114"),
	StatusConnecting: lipgloss.Color("220"),
	StatusOffline:    lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	DaySeparator:     lipgloss.Color("243"),
	ErrorText:        lipgloss.Color("203"),

	ActivityAccent: lipgloss.Color("58"), // dark amber background tint

	MatchForeground: lipgloss.Color("220"),

	LinkForeground: lipgloss.Color("75"),
	EmbedBorder:    lipgloss.Color("239"),

	OverlayForeground: lipgloss.Color("252"),
	OverlayBackground: lipgloss.Color("237"),
}
