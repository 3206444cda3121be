// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR encoding used for neo's local sync cache.
//
// Cached timeline events and room summaries are CBOR-encoded before
// being sealed and written to sqlite. Encoding is Core Deterministic
// (RFC 8949 §4.2) so identical rows produce identical bytes, and types
// implementing encoding.TextMarshaler (the ref identifiers) encode as
// text strings. Struct fields may use either cbor or json tags.
package codec
