// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderScrollbar draws a one-column scrollbar height rows tall for a
// viewport showing visibleLines of totalLines starting at offset. The
// thumb fills the column when everything fits.
func RenderScrollbar(theme Theme, height, totalLines, visibleLines, offset int) string {
	if height <= 0 {
		return ""
	}
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")
	thumb := lipgloss.NewStyle().Foreground(theme.FaintText).Render("┃")

	thumbStart, thumbSize := 0, height
	if totalLines > visibleLines && totalLines > 0 {
		thumbSize = max(height*visibleLines/totalLines, 1)
		if scrollable := totalLines - visibleLines; scrollable > 0 {
			thumbStart = offset * (height - thumbSize) / scrollable
		}
		thumbStart = min(max(thumbStart, 0), height-thumbSize)
	}

	rows := make([]string, height)
	for row := range rows {
		if row >= thumbStart && row < thumbStart+thumbSize {
			rows[row] = thumb
		} else {
			rows[row] = track
		}
	}
	return strings.Join(rows, "\n")
}
