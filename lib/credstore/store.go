// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credstore

import (
	"context"
	"fmt"
	"log/slog"
)

// SessionKey is the fixed logical key the descriptor is stored under.
const SessionKey = "session"

// Store saves and loads the session descriptor.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New returns a Store over backend. A nil logger discards.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{backend: backend, logger: logger}
}

// Save validates descriptor and writes it, replacing any previous one.
// An invalid descriptor is a *ValidationError and nothing is written.
func (s *Store) Save(ctx context.Context, descriptor SessionDescriptor) error {
	data, err := Encode(descriptor)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, SessionKey, data); err != nil {
		return fmt.Errorf("credstore: saving session: %w", err)
	}
	s.logger.Debug("session descriptor saved",
		"user_id", descriptor.UserID,
		"device_id", descriptor.DeviceID,
	)
	return nil
}

// Load returns the persisted descriptor, or nil with a nil error when
// none is stored. A stored value that fails validation is a
// *ValidationError.
func (s *Store) Load(ctx context.Context) (*SessionDescriptor, error) {
	data, found, err := s.backend.Get(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("credstore: loading session: %w", err)
	}
	if !found {
		return nil, nil
	}
	descriptor, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &descriptor, nil
}

// Clear removes the persisted descriptor.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("credstore: clearing session: %w", err)
	}
	s.logger.Debug("session descriptor cleared")
	return nil
}
