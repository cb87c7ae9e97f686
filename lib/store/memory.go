// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/schema"
)

// MemoryOptions configures an in-process store.
type MemoryOptions struct {
	// Clock supplies commit times for server timestamps. Defaults to
	// the real clock.
	Clock clock.Clock

	// EchoPending makes every write publish a pending snapshot (server
	// timestamps absent) before the committed one, the way a
	// latency-compensating remote store does.
	EchoPending bool

	Logger *slog.Logger
}

// Memory is an in-process Store. It backs tests and the single-process
// development mode.
type Memory struct {
	engine *engine
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-process store.
func NewMemory(options MemoryOptions) *Memory {
	return &Memory{engine: newEngine(options.Clock, options.Logger, options.EchoPending)}
}

// SetFault installs a hook consulted before every write. Pass nil to
// clear it.
func (m *Memory) SetFault(fault FaultFunc) {
	m.engine.setFault(fault)
}

// Subscribe implements [Store].
func (m *Memory) Subscribe(ctx context.Context, kind schema.Kind) (*Subscription, error) {
	return m.engine.subscribe(ctx, kind)
}

// Create implements [Store].
func (m *Memory) Create(ctx context.Context, kind schema.Kind, fields Fields) (string, error) {
	return m.engine.create(ctx, kind, fields)
}

// Update implements [Store].
func (m *Memory) Update(ctx context.Context, kind schema.Kind, id string, patch Fields) error {
	return m.engine.update(ctx, kind, id, patch)
}
