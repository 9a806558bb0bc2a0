//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package opened implements the store of values revealed during
// evaluation and waiting for a consistency check.
package opened

import (
	"sync"
)

// Store collects opened values. Gates running in parallel append to
// it and the round synchronization drains it before a consistency
// check. Each record is returned by exactly one Drain.
type Store[T any] struct {
	m       sync.Mutex
	pending []T
	drained uint64
}

// NewStore creates a new empty store.
func NewStore[T any]() *Store[T] {
	return new(Store[T])
}

// Push appends values to the store.
func (s *Store[T]) Push(values ...T) {
	s.m.Lock()
	s.pending = append(s.pending, values...)
	s.m.Unlock()
}

// Drain removes and returns all pending values.
func (s *Store[T]) Drain() []T {
	s.m.Lock()
	result := s.pending
	s.pending = nil
	s.drained += uint64(len(result))
	s.m.Unlock()
	return result
}

// Pending returns the number of pending values.
func (s *Store[T]) Pending() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.pending)
}

// HasPending tells if the store has pending values.
func (s *Store[T]) HasPending() bool {
	return s.Pending() > 0
}

// Exceeds tells if the number of pending values is greater than
// threshold.
func (s *Store[T]) Exceeds(threshold int) bool {
	return s.Pending() > threshold
}

// Drained returns the total number of values removed with Drain.
func (s *Store[T]) Drained() uint64 {
	s.m.Lock()
	defer s.m.Unlock()
	return s.drained
}
