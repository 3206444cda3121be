// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The sync loop backs off between failed long-polls and the timeline
// grouper buckets messages by local day. Both read time through a Clock
// so tests can pin "now" and step the backoff deterministically:
//
//	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
//	go loop.run(ctx)
//	fake.WaitForTimers(1) // loop is sleeping in its backoff
//	fake.Advance(2 * time.Second)
package clock
