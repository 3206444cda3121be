// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// SpliceOverlay draws overlayLines over view with the top-left corner
// at (anchorX, anchorY). Both sides of each covered view line keep
// their ANSI styling. Lines outside the view are dropped.
func SpliceOverlay(view string, overlayLines []string, anchorX, anchorY int) string {
	if len(overlayLines) == 0 {
		return view
	}
	viewLines := strings.Split(view, "\n")
	overlayWidth := ansi.StringWidth(overlayLines[0])

	for index, overlayLine := range overlayLines {
		row := anchorY + index
		if row < 0 || row >= len(viewLines) {
			continue
		}
		line := viewLines[row]

		var spliced strings.Builder
		if anchorX > 0 {
			prefix := ansi.Truncate(line, anchorX, "")
			spliced.WriteString(prefix)
			if gap := anchorX - ansi.StringWidth(prefix); gap > 0 {
				spliced.WriteString(strings.Repeat(" ", gap))
			}
		}
		spliced.WriteString("\x1b[0m")
		spliced.WriteString(overlayLine)
		spliced.WriteString("\x1b[0m")
		if suffixStart := anchorX + overlayWidth; suffixStart < ansi.StringWidth(line) {
			spliced.WriteString(ansi.TruncateLeft(line, suffixStart, ""))
		}
		viewLines[row] = spliced.String()
	}
	return strings.Join(viewLines, "\n")
}

// RenderBox lays out a titled box of the given outer width as overlay
// lines. Every returned line has the same visible width. Body lines
// longer than the box are truncated.
func RenderBox(theme Theme, title string, body []string, width int) []string {
	if width < 6 {
		width = 6
	}
	inner := width - 4
	background := lipgloss.NewStyle().Background(theme.OverlayBackground)
	text := background.Foreground(theme.OverlayForeground)
	heading := text.Bold(true).Foreground(theme.HeaderForeground)

	pad := func(style lipgloss.Style, content string) string {
		content = ansi.Truncate(content, inner, "…")
		fill := inner - ansi.StringWidth(content)
		return background.Render("  ") + style.Render(content) + background.Render(strings.Repeat(" ", fill+2))
	}

	lines := []string{background.Render(strings.Repeat(" ", width))}
	if title != "" {
		lines = append(lines, pad(heading, title), background.Render(strings.Repeat(" ", width)))
	}
	for _, line := range body {
		lines = append(lines, pad(text, line))
	}
	return append(lines, background.Render(strings.Repeat(" ", width)))
}

// CenterOverlay splices overlayLines into the middle of a view of the
// given size.
func CenterOverlay(view string, overlayLines []string, width, height int) string {
	if len(overlayLines) == 0 {
		return view
	}
	anchorX := max((width-ansi.StringWidth(overlayLines[0]))/2, 0)
	anchorY := max((height-len(overlayLines))/2, 0)
	return SpliceOverlay(view, overlayLines, anchorX, anchorY)
}

// ExtractExcerpt returns the first maxLines non-blank lines of body,
// each trimmed and truncated to maxWidth.
func ExtractExcerpt(body string, maxWidth, maxLines int) []string {
	var excerpt []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if ansi.StringWidth(trimmed) > maxWidth {
			trimmed = ansi.Truncate(trimmed, maxWidth, "…")
		}
		excerpt = append(excerpt, trimmed)
		if len(excerpt) >= maxLines {
			break
		}
	}
	return excerpt
}
