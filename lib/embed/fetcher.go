// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/Gregoor/matrix-neo/lib/netutil"
)

// DefaultMaxHeight is the oEmbed maxheight sent when Options leaves it
// unset.
const DefaultMaxHeight = 300

// ErrUnsupportedType is returned for oEmbed responses whose type is
// neither "rich" nor "video".
var ErrUnsupportedType = errors.New("embed: unsupported oEmbed type")

// Preview is a rendered-ready oEmbed result.
type Preview struct {
	URL          string
	Type         string
	Title        string
	HTML         string
	Text         string
	Host         string
	ProviderName string
	// Secure is true when URL uses https.
	Secure bool
}

// Options are passed to the provider with each request.
type Options struct {
	MaxHeight int
	MaxWidth  int
}

// Fetcher retrieves the preview for one content URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, options Options) (*Preview, error)
}

// OEmbedFetcher fetches previews from the provider endpoints in a
// Registry.
type OEmbedFetcher struct {
	Registry   *Registry
	HTTPClient *http.Client
}

type oembedResponse struct {
	Type         string `json:"type"`
	Version      string `json:"version"`
	Title        string `json:"title"`
	HTML         string `json:"html"`
	ProviderName string `json:"provider_name"`
	AuthorName   string `json:"author_name"`
}

// Fetch implements Fetcher.
func (f *OEmbedFetcher) Fetch(ctx context.Context, rawURL string, options Options) (*Preview, error) {
	match, ok := f.Registry.Lookup(rawURL)
	if !ok {
		return nil, fmt.Errorf("embed: no provider for %s", rawURL)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("embed: parsing %s: %w", rawURL, err)
	}

	query := url.Values{}
	query.Set("url", rawURL)
	query.Set("format", "json")
	maxHeight := options.MaxHeight
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	query.Set("maxheight", strconv.Itoa(maxHeight))
	if options.MaxWidth > 0 {
		query.Set("maxwidth", strconv.Itoa(options.MaxWidth))
	}

	separator := "?"
	if strings.Contains(match.Endpoint, "?") {
		separator = "&"
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, match.Endpoint+separator+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("embed: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("embed: request to %s failed: %w", match.ProviderName, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadLimited(response.Body, netutil.MaxEmbedSize)
	if err != nil {
		return nil, fmt.Errorf("embed: reading %s response: %w", match.ProviderName, err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: %s returned %d", match.ProviderName, response.StatusCode)
	}

	var decoded oembedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("embed: decoding %s response: %w", match.ProviderName, err)
	}
	if decoded.Type != "rich" && decoded.Type != "video" {
		return nil, fmt.Errorf("%w %q from %s", ErrUnsupportedType, decoded.Type, match.ProviderName)
	}

	providerName := decoded.ProviderName
	if providerName == "" {
		providerName = match.ProviderName
	}
	return &Preview{
		URL:          rawURL,
		Type:         decoded.Type,
		Title:        decoded.Title,
		HTML:         decoded.HTML,
		Text:         markupText(decoded.HTML),
		Host:         parsed.Host,
		ProviderName: providerName,
		Secure:       parsed.Scheme == "https",
	}, nil
}

// markupText flattens provider markup into plain lines. Script and
// style content is dropped; block elements start a new line.
func markupText(markup string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var builder strings.Builder
	skipDepth := 0
	newline := func() {
		text := builder.String()
		if text != "" && !strings.HasSuffix(text, "\n") {
			builder.WriteByte('\n')
		}
	}
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return strings.TrimSpace(builder.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "iframe":
				if tokenType == html.StartTagToken {
					skipDepth++
				}
			case "br", "p", "div", "blockquote", "li", "tr":
				newline()
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "iframe":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "blockquote", "li", "tr":
				newline()
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(tokenizer.Text())), " ")
			if text == "" {
				continue
			}
			current := builder.String()
			if current != "" && !strings.HasSuffix(current, "\n") {
				builder.WriteByte(' ')
			}
			builder.WriteString(text)
		}
	}
}
