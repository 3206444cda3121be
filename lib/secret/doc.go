// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the password typed into the login form and the
// homeserver access token in memory that lives outside the Go heap.
//
// A [Buffer] is backed by an anonymous mmap region, excluded from core
// dumps and, where the process's RLIMIT_MEMLOCK allows it, locked
// against swap. Close zeroes and unmaps the region. [Buffer.String]
// makes a heap copy and is reserved for API boundaries that need a
// string (the JSON login body and the Authorization header).
package secret
