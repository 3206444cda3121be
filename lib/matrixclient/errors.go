// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import (
	"errors"
	"fmt"

	"github.com/Gregoor/matrix-neo/lib/ref"
)

// ConnectionError reports that Start could not establish a working
// session with the homeserver: the network failed, or the server
// rejected the access token.
type ConnectionError struct {
	Homeserver string
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("matrixclient: connecting to %s: %v", e.Homeserver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CryptoInitError reports that the local cache's sealing key could not
// be loaded or created.
type CryptoInitError struct {
	Err error
}

func (e *CryptoInitError) Error() string {
	return fmt.Sprintf("matrixclient: initializing encryption: %v", e.Err)
}

func (e *CryptoInitError) Unwrap() error { return e.Err }

// SendError reports a failed message send.
type SendError struct {
	RoomID ref.RoomID
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("matrixclient: sending to %s: %v", e.RoomID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ErrSessionRevoked is the sync error when the homeserver no longer
// accepts the access token. The loop stops; only a new login helps.
var ErrSessionRevoked = errors.New("matrixclient: access token revoked by homeserver")

// ErrNotStarted is returned by operations that need a running client.
var ErrNotStarted = errors.New("matrixclient: client not started")
