// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

//go:embed providers.jsonc
var builtinProviders []byte

// Provider is one oEmbed provider.
type Provider struct {
	Name      string     `json:"provider_name"`
	URL       string     `json:"provider_url"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint is an oEmbed API URL and the content URL schemes it serves.
type Endpoint struct {
	Schemes []string `json:"schemes"`
	URL     string   `json:"url"`
}

// Match is the endpoint that serves a content URL.
type Match struct {
	ProviderName string
	Endpoint     string
}

type compiledEndpoint struct {
	providerName string
	endpoint     string
	patterns     []*regexp.Regexp
}

// Registry answers which provider, if any, can embed a URL. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	endpoints []compiledEndpoint
}

// ParseProviders parses a JSONC provider list.
func ParseProviders(data []byte) ([]Provider, error) {
	var providers []Provider
	if err := json.Unmarshal(jsonc.ToJSON(data), &providers); err != nil {
		return nil, fmt.Errorf("embed: parsing providers: %w", err)
	}
	return providers, nil
}

// NewRegistry compiles providers. Earlier providers win when schemes
// overlap.
func NewRegistry(providers []Provider) (*Registry, error) {
	registry := &Registry{}
	for _, provider := range providers {
		for _, endpoint := range provider.Endpoints {
			if endpoint.URL == "" {
				return nil, fmt.Errorf("embed: provider %q has an endpoint without a url", provider.Name)
			}
			compiled := compiledEndpoint{
				providerName: provider.Name,
				endpoint:     strings.ReplaceAll(endpoint.URL, "{format}", "json"),
			}
			for _, scheme := range endpoint.Schemes {
				compiled.patterns = append(compiled.patterns, compileScheme(scheme))
			}
			registry.endpoints = append(registry.endpoints, compiled)
		}
	}
	return registry, nil
}

// compileScheme turns an oEmbed scheme such as
// "https://*.youtube.com/watch*" into an anchored regular expression.
func compileScheme(scheme string) *regexp.Regexp {
	parts := strings.Split(scheme, "*")
	for index, part := range parts {
		parts[index] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// DefaultRegistry returns the built-in providers.
func DefaultRegistry() *Registry {
	registry, err := LoadRegistry("")
	if err != nil {
		panic(fmt.Sprintf("embed: built-in providers are invalid: %v", err))
	}
	return registry
}

// LoadRegistry returns the built-in providers, extended with the JSONC
// provider file at path when path is not empty. Entries from the file
// take precedence.
func LoadRegistry(path string) (*Registry, error) {
	builtin, err := ParseProviders(builtinProviders)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return NewRegistry(builtin)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("embed: reading providers: %w", err)
	}
	custom, err := ParseProviders(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewRegistry(append(custom, builtin...))
}

// Lookup returns the endpoint for rawURL.
func (r *Registry) Lookup(rawURL string) (Match, bool) {
	for _, endpoint := range r.endpoints {
		for _, pattern := range endpoint.patterns {
			if pattern.MatchString(rawURL) {
				return Match{ProviderName: endpoint.providerName, Endpoint: endpoint.endpoint}, true
			}
		}
	}
	return Match{}, false
}

// HasProvider reports whether some provider's scheme matches rawURL.
func (r *Registry) HasProvider(rawURL string) bool {
	_, ok := r.Lookup(rawURL)
	return ok
}
