// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/Gregoor/matrix-neo/lib/embed"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/timeline"
	"github.com/Gregoor/matrix-neo/lib/tui"
)

func TestSplitFences(t *testing.T) {
	segments := splitFences("look:\n```go\nfmt.Println(1)\n```\ndone")
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(segments), segments)
	}
	if segments[0].code || segments[0].text != "look:" {
		t.Errorf("segment 0 = %+v", segments[0])
	}
	if !segments[1].code || segments[1].language != "go" || segments[1].text != "fmt.Println(1)" {
		t.Errorf("segment 1 = %+v", segments[1])
	}
	if segments[2].code || segments[2].text != "done" {
		t.Errorf("segment 2 = %+v", segments[2])
	}
}

func TestSplitFencesUnterminated(t *testing.T) {
	segments := splitFences("```\nstill code")
	if len(segments) != 1 || !segments[0].code || segments[0].text != "still code" {
		t.Errorf("segments = %+v", segments)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	for _, line := range lines {
		if width := ansi.StringWidth(line); width > 10 {
			t.Errorf("line %q is %d wide", line, width)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps" {
		t.Errorf("words lost: %q", lines)
	}

	long := wrapText("https://example.org/a/very/long/path", 10)
	if len(long) < 4 {
		t.Errorf("long word not hard-wrapped: %q", long)
	}
	for _, line := range long {
		if ansi.StringWidth(line) > 10 {
			t.Errorf("line %q exceeds the width", line)
		}
	}
}

func TestPreviewHeading(t *testing.T) {
	tests := []struct {
		name    string
		preview embed.Preview
		want    string
	}{
		{"secure with title", embed.Preview{Host: "www.youtube.com", Title: "A video", Secure: true}, "🔒 www.youtube.com - A video"},
		{"insecure", embed.Preview{Host: "example.org", Title: "Page"}, "example.org - Page"},
		{"provider fallback", embed.Preview{Host: "vimeo.com", ProviderName: "Vimeo", Secure: true}, "🔒 vimeo.com - Vimeo"},
		{"host only", embed.Preview{Host: "example.org"}, "example.org"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := previewHeading(&test.preview); got != test.want {
				t.Errorf("previewHeading = %q, want %q", got, test.want)
			}
		})
	}
}

func TestRenderCoalescedMessages(t *testing.T) {
	room := newFakeRoom("!general:example.org", "General")
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	messages := []timeline.Message{
		{EventID: ref.MustParseEventID("$1"), Sender: alice, Timestamp: at, Body: "one"},
		{EventID: ref.MustParseEventID("$2"), Sender: alice, Timestamp: at, Body: "two"},
		{EventID: ref.MustParseEventID("$3"), Sender: bob, Timestamp: at.Add(24*time.Hour + time.Minute), Body: "three"},
	}
	renderer := timelineRenderer{theme: tui.DefaultTheme, width: 60, room: room}
	content := ansi.Strip(renderer.render(timeline.Group(messages, time.UTC)))

	if count := strings.Count(content, "Alice"); count != 1 {
		t.Errorf("sender label shown %d times, want 1:\n%s", count, content)
	}
	for _, label := range []string{"09:00", "09:01"} {
		if count := strings.Count(content, label); count != 1 {
			t.Errorf("time label %s shown %d times, want 1:\n%s", label, count, content)
		}
	}
	for _, day := range []string{"Mar 14, 2026", "Mar 15, 2026"} {
		if !strings.Contains(content, day) {
			t.Errorf("missing day separator %q:\n%s", day, content)
		}
	}
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if strings.Contains(line, "two") && !strings.HasPrefix(line, strings.Repeat(" ", bodyIndent)) {
			t.Errorf("coalesced message not indented: %q", line)
		}
	}
}

func TestRenderEmbeds(t *testing.T) {
	const link = "https://www.youtube.com/watch?v=abc"
	preview := &embed.Preview{
		URL:    link,
		Host:   "www.youtube.com",
		Title:  "Cats",
		Text:   "A video about cats\nsecond line",
		Secure: true,
	}
	renderer := timelineRenderer{
		theme: tui.DefaultTheme,
		width: 60,
		candidates: func(body string) []string {
			if strings.Contains(body, link) {
				return []string{link}
			}
			return nil
		},
		previews: func(rawURL string) *embed.Preview {
			if rawURL == link {
				return preview
			}
			return nil
		},
	}
	lines := renderer.embeds("watch "+link, 54)
	if len(lines) != 3 {
		t.Fatalf("got %d embed lines, want 3: %q", len(lines), lines)
	}
	if !strings.Contains(ansi.Strip(lines[0]), "🔒 www.youtube.com - Cats") {
		t.Errorf("heading = %q", ansi.Strip(lines[0]))
	}
	if !strings.Contains(ansi.Strip(lines[1]), "A video about cats") {
		t.Errorf("excerpt = %q", ansi.Strip(lines[1]))
	}

	if got := renderer.embeds("no links here", 54); len(got) != 0 {
		t.Errorf("embeds for a body without links = %q", got)
	}
}
