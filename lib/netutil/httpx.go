// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response reads. The homeserver and oEmbed
// providers are remote parties; neither gets to make the client allocate
// without limit.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds Matrix client-server API response bodies. An
// initial /sync for an account in many large rooms can run to tens of
// megabytes, so the limit is generous.
const MaxResponseSize int64 = 128 << 20

// MaxEmbedSize bounds oEmbed provider responses, which are small JSON
// documents.
const MaxEmbedSize int64 = 1 << 20

// ReadResponse reads body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return ReadLimited(body, MaxResponseSize)
}

// ReadLimited reads body up to limit bytes. A body longer than limit is
// an error rather than a silent truncation: a truncated JSON document
// would fail to decode with a misleading message.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return data, nil
}

// DecodeResponse reads body (bounded by limit) and JSON-decodes it into
// v.
func DecodeResponse(body io.Reader, limit int64, v any) error {
	data, err := ReadLimited(body, limit)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
