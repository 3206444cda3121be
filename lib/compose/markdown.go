// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/Gregoor/matrix-neo/messaging"
)

// The converter's configuration never changes and goldmark keeps
// per-call state in the reader, so one instance serves every draft.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Newlines the user typed stay line breaks.
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdownInstance
}

// Render builds the message content for a markdown body. A body that
// parses to one paragraph of plain text (links included) is sent as a
// plain m.text. Anything else also carries an HTML formatted_body.
// Raw HTML in the body is not passed through.
func Render(body string) messaging.MessageContent {
	content := messaging.NewTextMessage(body)

	source := []byte(body)
	markdown := getMarkdown()
	document := markdown.Parser().Parse(text.NewReader(source))
	if isPlain(document) {
		return content
	}

	var buffer bytes.Buffer
	if err := markdown.Renderer().Render(&buffer, source, document); err != nil {
		return content
	}
	content.Format = messaging.FormatHTML
	content.FormattedBody = strings.TrimSuffix(buffer.String(), "\n")
	return content
}

// isPlain reports whether document is at most one paragraph holding
// only text and bare links.
func isPlain(document ast.Node) bool {
	block := document.FirstChild()
	if block == nil {
		return true
	}
	if block.NextSibling() != nil || block.Kind() != ast.KindParagraph {
		return false
	}
	for child := block.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			if node.HardLineBreak() {
				return false
			}
		case *ast.AutoLink:
		default:
			return false
		}
	}
	return true
}
