// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package matrixclient is neo's live connection to a homeserver: the
// /sync loop, the in-memory room and timeline state it maintains, and
// the sealed sqlite cache that lets a restart show history before the
// first sync completes.
//
// Lifecycle, driven by the session controller:
//
//	client, err := matrixclient.New(config)     // opens the local cache
//	unsubscribe := client.OnSyncStateChange(fn) // before Start
//	err = client.InitEncryption(ctx)            // *CryptoInitError
//	err = client.Start(ctx)                     // *ConnectionError
//	...
//	client.Stop()
//
// Start validates the access token with /account/whoami, restores the
// cache and launches the sync goroutine. Each /sync response is applied
// completely (room state, timelines, cache write) before any listener
// runs, and listeners always run outside the client's locks. The first
// successfully applied response fires [SyncPrepared] exactly once per
// Client.
//
// [Room] exposes a timeline snapshot and per-event listeners.
// OnTimelineEvent returns its own unsubscribe function, so a consumer
// that holds the function owns the subscription.
package matrixclient
