// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sync"

	"github.com/bureau-foundation/taskboard/lib/schema"
)

// Subscription is a live feed of snapshots of one collection.
//
// Read snapshots from C. C is closed when the subscription ends, either
// because Close was called, the subscribe context was cancelled, or the
// feed failed; Err distinguishes the last case.
type Subscription struct {
	kind    schema.Kind
	updates chan Snapshot

	mu     sync.Mutex
	closed bool
	err    error

	done    chan struct{}
	cleanup func()
}

func newSubscription(kind schema.Kind, cleanup func()) *Subscription {
	return &Subscription{
		kind:    kind,
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
		cleanup: cleanup,
	}
}

// Kind returns the subscribed collection.
func (s *Subscription) Kind() schema.Kind { return s.kind }

// C delivers snapshots in commit order. Only the newest undelivered
// snapshot is kept.
func (s *Subscription) C() <-chan Snapshot { return s.updates }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the failure that ended the feed, or nil if it is still
// running or was closed normally.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription. No snapshot is delivered after Close
// returns. Safe to call more than once.
func (s *Subscription) Close() {
	s.finish(nil)
}

// deliver replaces any unread snapshot with snapshot. Callers deliver
// in commit order from a single goroutine or under the store lock.
func (s *Subscription) deliver(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- snapshot
}

// finish ends the subscription with err (nil for a normal close).
func (s *Subscription) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.updates)
	close(s.done)
	s.mu.Unlock()

	if s.cleanup != nil {
		s.cleanup()
	}
}
