// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds one provider request when ResolverConfig leaves
// Timeout unset.
const DefaultTimeout = 10 * time.Second

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Registry *Registry
	// Fetcher defaults to an OEmbedFetcher over Registry.
	Fetcher Fetcher
	Options Options
	Timeout time.Duration
	Logger  *slog.Logger
}

// cacheEntry is a finished lookup. A nil preview records a miss.
type cacheEntry struct {
	preview *Preview
}

// Resolver finds embeddable links in message bodies and resolves them
// to previews. Results, including failures, are cached per URL for the
// life of the Resolver. Concurrent lookups of the same URL share one
// request.
type Resolver struct {
	registry *Registry
	fetcher  Fetcher
	options  Options
	timeout  time.Duration
	logger   *slog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewResolver creates a Resolver.
func NewResolver(config ResolverConfig) *Resolver {
	registry := config.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	fetcher := config.Fetcher
	if fetcher == nil {
		fetcher = &OEmbedFetcher{Registry: registry}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry: registry,
		fetcher:  fetcher,
		options:  config.Options,
		timeout:  timeout,
		logger:   logger,
		cache:    make(map[string]cacheEntry),
	}
}

// Candidates returns the whitespace-separated tokens of body that some
// provider can embed, in order of appearance.
func (r *Resolver) Candidates(body string) []string {
	var candidates []string
	for _, token := range strings.Fields(body) {
		if r.registry.HasProvider(token) {
			candidates = append(candidates, token)
		}
	}
	return candidates
}

// Cached returns a finished lookup without blocking. done is false when
// rawURL has not been resolved yet. A done lookup with a nil preview is
// a recorded miss.
func (r *Resolver) Cached(rawURL string) (preview *Preview, done bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[rawURL]
	return entry.preview, ok
}

// Resolve returns the preview for rawURL. ok is false when the provider
// failed or returned a type that is not embedded. ctx only bounds this
// caller's wait; the shared request runs to completion (or to the
// resolver's timeout) so the result can be cached for others.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (preview *Preview, ok bool) {
	if preview, done := r.Cached(rawURL); done {
		return preview, preview != nil
	}

	results := r.group.DoChan(rawURL, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		preview, err := r.fetcher.Fetch(fetchCtx, rawURL, r.options)
		if err != nil {
			r.logger.Debug("link preview unavailable", "url", rawURL, "error", err)
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			preview = nil
		}
		r.mu.Lock()
		r.cache[rawURL] = cacheEntry{preview: preview}
		r.mu.Unlock()
		return preview, nil
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return nil, false
		}
		preview, _ := result.Val.(*Preview)
		return preview, preview != nil
	case <-ctx.Done():
		return nil, false
	}
}
