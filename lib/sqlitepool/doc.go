// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the sqlite database behind neo's local sync
// cache.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Every connection gets
// WAL journaling, NORMAL synchronous and a busy timeout, then runs the
// caller's schema script. Connections are not safe for concurrent use:
// a goroutine takes one, uses it, and puts it back, usually through
// [Pool.With].
package sqlitepool
