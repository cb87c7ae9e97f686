// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/tasksync"
)

// DefaultRefresh is how often a Deriver recomputes without any table
// or session change, so that tasks cross into Overdue on time.
const DefaultRefresh = time.Minute

// Source delivers synchronized table states. *tasksync.Core satisfies
// it.
type Source interface {
	Watch() (<-chan *tasksync.State, func())
}

// Projection is everything a consumer renders, derived from one table
// state, one session, and one observation time.
type Projection struct {
	// Sequence increases with every derivation of one Deriver.
	Sequence uint64 `json:"sequence"`

	// Generation is the table state's generation.
	Generation uint64 `json:"generation"`

	// Ready is false until the synchronization core has populated both
	// tables; the slices are empty until then.
	Ready bool `json:"ready"`

	Session   Session             `json:"session"`
	Filtered  []task.Task         `json:"filtered"`
	Buckets   Buckets             `json:"buckets"`
	Counts    map[task.Status]int `json:"counts"`
	Users     []task.User         `json:"users"`
	DerivedAt time.Time           `json:"derivedAt"`
}

// Derive computes the projection of state for session at now. It is
// the pure core of [Deriver].
func Derive(state *tasksync.State, session Session, now time.Time) Projection {
	tasks := state.Tasks()
	return Projection{
		Generation: state.Generation,
		Ready:      state.Ready(),
		Session:    session,
		Filtered:   FilteredTasks(tasks, session.SearchTerm, session.StatusFilter),
		Buckets:    Dashboard(tasks, session.ActorID, now),
		Counts:     CountByStatus(tasks),
		Users:      state.Users(),
		DerivedAt:  now,
	}
}

// DeriverConfig configures a Deriver. Source is required.
type DeriverConfig struct {
	Source Source

	// Session is the initial session.
	Session Session

	// Clock supplies observation times and the refresh ticker.
	// Defaults to the real clock.
	Clock clock.Clock

	// Refresh is the recompute interval absent other triggers.
	// Defaults to DefaultRefresh.
	Refresh time.Duration

	Logger *slog.Logger
}

// Deriver keeps a Projection current for one session.
type Deriver struct {
	source  Source
	clock   clock.Clock
	refresh time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	session Session

	// state is the last table state seen; nil until the first arrives.
	state    *tasksync.State
	current  Projection
	sequence uint64
	watchers map[chan Projection]struct{}
}

// NewDeriver returns a Deriver that does nothing until Run.
func NewDeriver(cfg DeriverConfig) *Deriver {
	if cfg.Source == nil {
		panic("taskview.NewDeriver: Source is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Deriver{
		source:   cfg.Source,
		clock:    cfg.Clock,
		refresh:  cfg.Refresh,
		logger:   cfg.Logger,
		session:  cfg.Session,
		watchers: make(map[chan Projection]struct{}),
	}
}

// Run recomputes the projection on every table state and refresh tick
// until ctx is cancelled. It returns nil. Session changes are derived
// by SetSession itself.
func (d *Deriver) Run(ctx context.Context) error {
	states, stopWatching := d.source.Watch()
	defer stopWatching()

	ticker := d.clock.NewTicker(d.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case state := <-states:
			d.mu.Lock()
			d.state = state
			d.deriveLocked()
			d.mu.Unlock()
		case <-ticker.C:
			d.mu.Lock()
			d.deriveLocked()
			d.mu.Unlock()
		}
	}
}

// deriveLocked recomputes from the last seen state. d.mu must be held.
func (d *Deriver) deriveLocked() {
	if d.state == nil {
		return
	}
	projection := Derive(d.state, d.session, d.clock.Now())
	d.sequence++
	projection.Sequence = d.sequence
	d.current = projection

	d.logger.Debug("projection derived",
		"sequence", projection.Sequence,
		"generation", projection.Generation,
		"filtered", len(projection.Filtered),
		"overdue", len(projection.Buckets.Overdue),
	)

	for updates := range d.watchers {
		select {
		case <-updates:
		default:
		}
		updates <- projection
	}
}

// Session returns the current session.
func (d *Deriver) Session() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// SetSession replaces the session and, once a table state has been
// seen, derives from it before returning: Current and every watcher
// reflect the new session immediately.
func (d *Deriver) SetSession(session Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session = session
	d.deriveLocked()
}

// Current returns the latest projection, or the zero Projection
// before the first derivation.
func (d *Deriver) Current() Projection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Watch returns a channel receiving every later projection, coalesced
// like [tasksync.Core.Watch]. If a projection exists it is sent at
// once. cancel stops delivery.
func (d *Deriver) Watch() (<-chan Projection, func()) {
	updates := make(chan Projection, 1)

	d.mu.Lock()
	d.watchers[updates] = struct{}{}
	if d.sequence > 0 {
		updates <- d.current
	}
	d.mu.Unlock()

	var once sync.Once
	return updates, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watchers, updates)
			d.mu.Unlock()
		})
	}
}
