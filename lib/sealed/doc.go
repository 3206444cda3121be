// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts neo's local sync cache at rest with age.
//
// Each state directory has one x25519 identity stored in a 0600 key
// file. Every cached row (room summaries, timeline events) is encrypted
// to that identity before it reaches sqlite, so the database file alone
// discloses neither message bodies nor room names. The private key is
// held in a [secret.Buffer] while the program runs.
//
// This is not Matrix end-to-end encryption: Olm/Megolm rooms are not
// decrypted by neo.
package sealed
