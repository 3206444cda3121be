// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/Gregoor/matrix-neo/lib/embed"
	"github.com/Gregoor/matrix-neo/lib/timeline"
	"github.com/Gregoor/matrix-neo/lib/tui"
)

// bodyIndent is the column where message bodies start: a five-column
// time label and a space.
const bodyIndent = 6

// embedExcerptLines caps the preview text shown under a message.
const embedExcerptLines = 3

// timelineRenderer turns day groups into viewport content.
type timelineRenderer struct {
	theme tui.Theme
	width int
	// room resolves display names. Nil shows raw user IDs.
	room Room
	// previews returns a finished preview for a URL, or nil. Nil
	// disables previews.
	previews func(rawURL string) *embed.Preview
	// candidates lists the embeddable URLs of a body.
	candidates func(body string) []string
}

// render lays out every group. Each day starts with a separator line;
// each message with a sender label starts with a header line.
func (renderer timelineRenderer) render(groups []timeline.DayGroup) string {
	var lines []string
	for _, group := range groups {
		lines = append(lines, renderer.daySeparator(group.Label()))
		for _, message := range group.Messages {
			lines = append(lines, renderer.message(message)...)
		}
	}
	return strings.Join(lines, "\n")
}

func (renderer timelineRenderer) daySeparator(label string) string {
	label = " " + label + " "
	side := max((renderer.width-ansi.StringWidth(label))/2, 1)
	rule := strings.Repeat("─", side)
	return lipgloss.NewStyle().Foreground(renderer.theme.DaySeparator).Render(rule + label + rule)
}

func (renderer timelineRenderer) message(message timeline.DisplayMessage) []string {
	theme := renderer.theme
	timeStyle := lipgloss.NewStyle().Foreground(theme.FaintText)
	timeLabel := strings.Repeat(" ", bodyIndent)
	if message.Time != "" {
		timeLabel = timeStyle.Render(message.Time) + " "
	}

	var lines []string
	if message.Sender != "" {
		name := message.Sender
		if renderer.room != nil {
			name = renderer.room.DisplayName(message.Message.Sender)
		}
		senderStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.SenderColor(message.Message.Sender.String()))
		lines = append(lines, timeLabel+senderStyle.Render(name))
		timeLabel = strings.Repeat(" ", bodyIndent)
	}

	bodyWidth := max(renderer.width-bodyIndent, 10)
	pad := strings.Repeat(" ", bodyIndent)
	for index, line := range renderer.body(message.Body, bodyWidth) {
		if index == 0 {
			lines = append(lines, timeLabel+line)
		} else {
			lines = append(lines, pad+line)
		}
	}
	for _, line := range renderer.embeds(message.Body, bodyWidth) {
		lines = append(lines, pad+line)
	}
	return lines
}

// body renders a message body: prose is word-wrapped, fenced code is
// highlighted and truncated instead.
func (renderer timelineRenderer) body(body string, width int) []string {
	text := lipgloss.NewStyle().Foreground(renderer.theme.NormalText)
	var lines []string
	for _, segment := range splitFences(body) {
		if segment.code {
			for _, line := range strings.Split(renderer.highlightCode(segment.text, segment.language), "\n") {
				lines = append(lines, ansi.Truncate(line, width, "…"))
			}
			continue
		}
		for _, line := range wrapText(segment.text, width) {
			lines = append(lines, text.Render(line))
		}
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// highlightCode highlights with chroma, or renders faint plain text
// when the language is unknown.
func (renderer timelineRenderer) highlightCode(code, language string) string {
	fallback := lipgloss.NewStyle().Foreground(renderer.theme.FaintText)
	if language == "" {
		return fallback.Render(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return fallback.Render(code)
	}
	return strings.TrimRight(buffer.String(), "\n")
}

// embeds renders one block per resolved preview of the body's links:
// a "host - title" line, marked with a lock for https, then an excerpt
// of the preview text.
func (renderer timelineRenderer) embeds(body string, width int) []string {
	if renderer.previews == nil || renderer.candidates == nil {
		return nil
	}
	theme := renderer.theme
	border := lipgloss.NewStyle().Foreground(theme.EmbedBorder).Render("│ ")
	heading := lipgloss.NewStyle().Foreground(theme.LinkForeground).Bold(true)
	text := lipgloss.NewStyle().Foreground(theme.FaintText)
	inner := max(width-2, 4)

	var lines []string
	for _, rawURL := range renderer.candidates(body) {
		preview := renderer.previews(rawURL)
		if preview == nil {
			continue
		}
		lines = append(lines, border+heading.Render(ansi.Truncate(previewHeading(preview), inner, "…")))
		for _, excerpt := range tui.ExtractExcerpt(preview.Text, inner, embedExcerptLines) {
			lines = append(lines, border+text.Render(excerpt))
		}
	}
	return lines
}

// previewHeading is the first line of a preview block.
func previewHeading(preview *embed.Preview) string {
	var heading strings.Builder
	if preview.Secure {
		heading.WriteString("🔒 ")
	}
	heading.WriteString(preview.Host)
	title := preview.Title
	if title == "" {
		title = preview.ProviderName
	}
	if title != "" {
		heading.WriteString(" - ")
		heading.WriteString(title)
	}
	return heading.String()
}

// wrapText wraps at word boundaries, then hard-wraps words that are
// still too long, such as URLs.
func wrapText(text string, width int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		wrapped := wordwrap.String(line, width)
		for _, wrappedLine := range strings.Split(wrapped, "\n") {
			if ansi.StringWidth(wrappedLine) > width {
				lines = append(lines, strings.Split(wrap.String(wrappedLine, width), "\n")...)
			} else {
				lines = append(lines, wrappedLine)
			}
		}
	}
	return lines
}

// fenceSegment is a run of prose or one fenced code block.
type fenceSegment struct {
	code     bool
	language string
	text     string
}

// splitFences cuts a body at ``` fence lines. An unterminated fence
// runs to the end of the body.
func splitFences(body string) []fenceSegment {
	var segments []fenceSegment
	var current []string
	inCode := false
	language := ""

	flush := func() {
		if len(current) == 0 {
			return
		}
		segments = append(segments, fenceSegment{code: inCode, language: language, text: strings.Join(current, "\n")})
		current = nil
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			flush()
			if inCode {
				inCode = false
				language = ""
			} else {
				inCode = true
				language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			continue
		}
		current = append(current, line)
	}
	flush()
	return segments
}
