// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"strings"
	"testing"

	"github.com/Gregoor/matrix-neo/messaging"
)

func TestRenderPlain(t *testing.T) {
	for _, body := range []string{
		"hello",
		"two\nlines",
		"see https://example.com/page for details",
		"a < b and c > d",
		"snake_case_name",
	} {
		content := Render(body)
		if content.Body != body {
			t.Errorf("Render(%q).Body = %q", body, content.Body)
		}
		if content.Format != "" || content.FormattedBody != "" {
			t.Errorf("Render(%q) produced formatted content %q", body, content.FormattedBody)
		}
	}
}

func TestRenderMarkup(t *testing.T) {
	tests := []struct {
		body     string
		contains string
	}{
		{"hello *world*", "<em>world</em>"},
		{"**bold**", "<strong>bold</strong>"},
		{"~~gone~~", "<del>gone</del>"},
		{"use `go vet`", "<code>go vet</code>"},
		{"- one\n- two", "<li>one</li>"},
		{"first\n\nsecond", "<p>second</p>"},
		{"```go\nfunc main() {}\n```", `<code class="language-go">`},
		{"> quoted", "<blockquote>"},
		{"[link](https://example.com)", `<a href="https://example.com">link</a>`},
	}
	for _, test := range tests {
		content := Render(test.body)
		if content.Body != test.body {
			t.Errorf("Render(%q).Body = %q, want the markdown source", test.body, content.Body)
		}
		if content.Format != messaging.FormatHTML {
			t.Errorf("Render(%q).Format = %q, want %q", test.body, content.Format, messaging.FormatHTML)
		}
		if !strings.Contains(content.FormattedBody, test.contains) {
			t.Errorf("Render(%q).FormattedBody = %q, want it to contain %q", test.body, content.FormattedBody, test.contains)
		}
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	content := Render("<script>alert(1)</script>\n\n*x*")
	if strings.Contains(content.FormattedBody, "<script>") {
		t.Errorf("FormattedBody = %q passes raw HTML through", content.FormattedBody)
	}
}
