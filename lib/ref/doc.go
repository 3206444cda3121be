// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable value types for the Matrix
// identifiers neo passes around: user IDs (@localpart:server), room IDs
// (!opaque:server), event IDs ($opaque) and event types.
//
// Identifiers are parsed once at the boundary (JSON decoding of /sync
// responses, the persisted session descriptor, CLI flags) and carried as
// typed values afterwards, so a room ID can never be passed where a user
// ID is expected. All types implement encoding.TextMarshaler and
// encoding.TextUnmarshaler, which makes them usable as JSON and CBOR
// strings and as JSON map keys.
package ref
