// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireNoReceive] wrap the select-with-timeout
// pattern used when tests wait on callbacks fired from the sync
// goroutine, so individual tests never call time.After themselves.
package testutil
