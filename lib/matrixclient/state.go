// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

// SyncState is the sync loop's externally visible condition.
type SyncState int

const (
	// SyncIdle is the state before Start.
	SyncIdle SyncState = iota
	// SyncPrepared fires once, after the first /sync response has been
	// applied.
	SyncPrepared
	// SyncSyncing means the loop is long-polling normally.
	SyncSyncing
	// SyncReconnecting means the last request failed and the loop is
	// backing off before retrying.
	SyncReconnecting
	// SyncError means the loop stopped on an unrecoverable error.
	SyncError
	// SyncStopped means Stop was called.
	SyncStopped
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncPrepared:
		return "prepared"
	case SyncSyncing:
		return "syncing"
	case SyncReconnecting:
		return "reconnecting"
	case SyncError:
		return "error"
	case SyncStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SyncEvent is delivered to OnSyncStateChange listeners. Err is set for
// SyncReconnecting (the failure being retried) and SyncError.
type SyncEvent struct {
	State SyncState
	Err   error
}
