// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credstore persists the one session descriptor neo needs to
// resume a login without asking for the password again.
//
// The descriptor is stored as JSON under the fixed key "session":
//
//	{"access_token": "...", "device_id": "...",
//	 "home_server": "https://matrix.org", "user_id": "@alice:matrix.org"}
//
// All four fields are required strings and unknown fields are rejected.
// A persisted value that no longer matches that schema is a
// [*ValidationError] from [Store.Load], never silently discarded, so
// the user learns their state directory is damaged instead of being
// logged out.
//
// Storage is pluggable through [Backend]. [FileBackend] is the
// production backend (one 0600 file per key in a 0700 directory,
// replaced atomically); [MemoryBackend] serves tests.
package credstore
