// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the path from a persisted credential to a live
// Matrix client.
//
// A [Controller] moves through five states:
//
//	Loading        -> LoggedOut | Active | Failed
//	LoggedOut      -> Authenticating
//	Authenticating -> Active | LoggedOut
//	Active         -> Failed | LoggedOut
//	Failed         -> Loading (Retry) | LoggedOut
//
// Every state change goes through a single transition function. The
// descriptor of the active session is only reachable from an Active
// [State].
//
// Entering Active always builds a new client. The room list reads as
// empty until that client reports its first completed sync; sync
// notifications from a client that has since been replaced are
// dropped.
package session
