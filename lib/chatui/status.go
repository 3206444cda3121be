// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/tui"
)

// connectionLabel maps a sync state to the indicator text and color.
func connectionLabel(theme tui.Theme, state matrixclient.SyncState) (string, lipgloss.Color) {
	switch state {
	case matrixclient.SyncPrepared, matrixclient.SyncSyncing:
		return "online", theme.StatusOnline
	case matrixclient.SyncReconnecting:
		return "reconnecting", theme.StatusConnecting
	case matrixclient.SyncError:
		return "sync failed", theme.StatusOffline
	case matrixclient.SyncStopped:
		return "offline", theme.StatusOffline
	default:
		return "connecting", theme.StatusConnecting
	}
}

// statusBar is the bottom line of the main screen.
type statusBar struct {
	theme  tui.Theme
	width  int
	sync   matrixclient.SyncState
	userID string
	notice string
	level  slog.Level
	hint   string
}

// view renders one line: connection indicator and user on the left,
// the current notice in the middle, the key hint on the right.
func (bar statusBar) view() string {
	theme := bar.theme
	label, color := connectionLabel(theme, bar.sync)
	left := lipgloss.NewStyle().Foreground(color).Render("● "+label)
	if bar.userID != "" {
		left += lipgloss.NewStyle().Foreground(theme.FaintText).Render("  " + bar.userID)
	}
	right := lipgloss.NewStyle().Foreground(theme.HelpText).Render(bar.hint)

	middleWidth := bar.width - ansi.StringWidth(left) - ansi.StringWidth(right) - 2
	middle := ""
	if bar.notice != "" && middleWidth > 3 {
		noticeStyle := lipgloss.NewStyle().Foreground(theme.NormalText)
		if bar.level >= slog.LevelWarn {
			noticeStyle = noticeStyle.Foreground(theme.ErrorText)
		}
		middle = noticeStyle.Render(ansi.Truncate(bar.notice, middleWidth, "…"))
	}
	gap := max(bar.width-ansi.StringWidth(left)-ansi.StringWidth(middle)-ansi.StringWidth(right), 2)
	leftGap := 1
	if middle == "" {
		leftGap = gap
	}
	line := left + strings.Repeat(" ", leftGap) + middle
	if middle != "" {
		line += strings.Repeat(" ", max(gap-1, 1))
	}
	return ansi.Truncate(line+right, bar.width, "")
}
