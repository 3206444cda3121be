// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import "sync"

// listenerSet holds callbacks in registration order. Callers take a
// snapshot under the set's lock and invoke it without holding any lock.
type listenerSet[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []listenerEntry[T]
}

type listenerEntry[T any] struct {
	id       uint64
	callback func(T)
}

// add registers callback and returns a function that removes it. The
// returned function is safe to call more than once.
func (s *listenerSet[T]) add(callback func(T)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, listenerEntry[T]{id: id, callback: callback})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *listenerSet[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for index, entry := range s.entries {
		if entry.id == id {
			s.entries = append(s.entries[:index:index], s.entries[index+1:]...)
			return
		}
	}
}

func (s *listenerSet[T]) snapshot() []func(T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	callbacks := make([]func(T), len(s.entries))
	for index, entry := range s.entries {
		callbacks[index] = entry.callback
	}
	return callbacks
}

func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *listenerSet[T]) emit(value T) {
	for _, callback := range s.snapshot() {
		callback(value)
	}
}
