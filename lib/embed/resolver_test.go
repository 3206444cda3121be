// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gregoor/matrix-neo/lib/testutil"
)

// fakeFetcher returns canned previews keyed by URL. When gate is
// non-nil, Fetch blocks until the gate is closed or its context ends.
type fakeFetcher struct {
	previews map[string]*Preview
	gate     chan struct{}
	started  chan string
	calls    atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, options Options) (*Preview, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- rawURL
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if preview, ok := f.previews[rawURL]; ok {
		return preview, nil
	}
	return nil, errors.New("no preview")
}

const (
	videoURL   = "https://www.youtube.com/watch?v=abc"
	missingURL = "https://vimeo.com/404"
)

func newTestResolver(fetcher *fakeFetcher) *Resolver {
	return NewResolver(ResolverConfig{Fetcher: fetcher, Timeout: 5 * time.Second})
}

func TestCandidates(t *testing.T) {
	resolver := newTestResolver(&fakeFetcher{})
	body := "look " + videoURL + " and https://example.com/x then\n" + missingURL + " " + videoURL
	got := resolver.Candidates(body)
	want := []string{videoURL, missingURL, videoURL}
	if !slices.Equal(got, want) {
		t.Errorf("Candidates = %q, want %q", got, want)
	}
	if got := resolver.Candidates("no links here"); got != nil {
		t.Errorf("Candidates = %q, want nil", got)
	}
}

func TestResolveCachesHitsAndMisses(t *testing.T) {
	fetcher := &fakeFetcher{previews: map[string]*Preview{
		videoURL: {URL: videoURL, Type: "video", Title: "Video"},
	}}
	resolver := newTestResolver(fetcher)
	ctx := context.Background()

	if _, done := resolver.Cached(videoURL); done {
		t.Fatal("Cached reports done before any lookup")
	}

	for range 3 {
		preview, ok := resolver.Resolve(ctx, videoURL)
		if !ok || preview.Title != "Video" {
			t.Fatalf("Resolve(video) = %+v, %v", preview, ok)
		}
		if preview, ok := resolver.Resolve(ctx, missingURL); ok || preview != nil {
			t.Fatalf("Resolve(missing) = %+v, %v; want a miss", preview, ok)
		}
	}
	if calls := fetcher.calls.Load(); calls != 2 {
		t.Errorf("fetcher called %d times, want 2", calls)
	}

	if preview, done := resolver.Cached(videoURL); !done || preview == nil {
		t.Errorf("Cached(video) = %+v, %v", preview, done)
	}
	if preview, done := resolver.Cached(missingURL); !done || preview != nil {
		t.Errorf("Cached(missing) = %+v, %v; want a recorded miss", preview, done)
	}
}

func TestResolveCollapsesConcurrentLookups(t *testing.T) {
	fetcher := &fakeFetcher{
		previews: map[string]*Preview{videoURL: {URL: videoURL, Type: "video"}},
		gate:     make(chan struct{}),
		started:  make(chan string, 8),
	}
	resolver := newTestResolver(fetcher)

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := resolver.Resolve(context.Background(), videoURL)
			results <- ok
		}()
	}

	testutil.RequireReceive(t, fetcher.started, 5*time.Second, "fetch never started")
	// Let the other callers join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()
	close(results)

	for ok := range results {
		if !ok {
			t.Error("a caller got a miss")
		}
	}
	if calls := fetcher.calls.Load(); calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestResolveCallerCancelDoesNotPoisonCache(t *testing.T) {
	fetcher := &fakeFetcher{
		previews: map[string]*Preview{videoURL: {URL: videoURL, Type: "video"}},
		gate:     make(chan struct{}),
		started:  make(chan string, 1),
	}
	resolver := newTestResolver(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := resolver.Resolve(ctx, videoURL)
		done <- ok
	}()
	testutil.RequireReceive(t, fetcher.started, 5*time.Second, "fetch never started")
	cancel()
	if ok := testutil.RequireReceive(t, done, 5*time.Second, "Resolve did not return after cancel"); ok {
		t.Error("cancelled Resolve reported a preview")
	}

	// The shared fetch keeps running and its result lands in the cache.
	close(fetcher.gate)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if preview, done := resolver.Cached(videoURL); done {
			if preview == nil {
				t.Fatal("cache recorded a miss for a successful fetch")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("result never cached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestResolveTimeoutIsAMiss(t *testing.T) {
	fetcher := &fakeFetcher{gate: make(chan struct{})}
	resolver := NewResolver(ResolverConfig{Fetcher: fetcher, Timeout: 20 * time.Millisecond})
	defer close(fetcher.gate)

	if preview, ok := resolver.Resolve(context.Background(), videoURL); ok || preview != nil {
		t.Fatalf("Resolve = %+v, %v; want a miss", preview, ok)
	}
	if _, done := resolver.Cached(videoURL); !done {
		t.Error("timed-out lookup not cached as a miss")
	}
}
