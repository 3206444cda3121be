// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the subset of the Matrix client-server API a
// chat client needs.
//
// [Client] is unauthenticated. It holds the homeserver base URL and the
// HTTP transport and performs password login, returning a [Session].
// [Session] carries the access token (in a secret.Buffer) and performs
// the authenticated calls: identity check (WhoAmI), incremental /sync
// with long-polling, message sends with unique transaction IDs, state
// event reads, joined-room listing and logout.
//
// All API errors are returned as [*MatrixError] carrying the Matrix
// errcode and HTTP status. [IsMatrixError] tests for a specific code.
// Request URLs are built by concatenating path-escaped segments onto
// the base URL, so room IDs containing reserved characters survive
// untouched.
package messaging
