// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasksync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// Core owns the authoritative tables. Create it with New and feed it
// with Run; read it from any goroutine.
type Core struct {
	store  store.Store
	logger *slog.Logger

	mu sync.RWMutex

	// authoritative is the last applied task snapshot, already
	// normalized and ordered. users likewise.
	authoritative []task.Task
	users         []task.User
	tasksReady    bool
	usersReady    bool

	// writes holds, per task, the local writes not yet shown by the
	// store, in issue order.
	writes map[string][]*localWrite

	// state is the published merge of the tables and the shadows.
	state *State

	watchers map[*watcher]struct{}
	ready    chan struct{}
}

// localWrite is one lifecycle write layered over the authoritative
// record. apply must be idempotent: it runs again on every rebuild,
// including over records that already contain the write.
type localWrite struct {
	apply func(*task.Task)

	// confirmed is set once the store accepted the write.
	confirmed bool

	// revision is the authoritative revision last compared against;
	// wait counts the revision changes still allowed to arrive before
	// the write is given up as overwritten by another writer.
	revision string
	wait     int
}

// visibleIn reports whether authoritative already holds the write.
func (w *localWrite) visibleIn(authoritative task.Task) bool {
	applied := authoritative.Clone()
	w.apply(&applied)
	return sameContent(applied, authoritative)
}

// overwritten counts a new authoritative revision against the write
// and reports whether the write has waited for as many as it may.
func (w *localWrite) overwritten(authoritative task.Task) bool {
	if authoritative.Revision != w.revision {
		w.revision = authoritative.Revision
		w.wait--
	}
	return w.wait <= 0
}

// reconcileLog drops the confirmed writes authoritative accounts for.
// A confirmed write the record shows also accounts for every confirmed
// write issued before it, since those committed first. Unconfirmed
// writes always stay.
func reconcileLog(log []*localWrite, authoritative task.Task) []*localWrite {
	shown := -1
	for i, write := range log {
		if write.confirmed && write.visibleIn(authoritative) {
			shown = i
		}
	}
	kept := make([]*localWrite, 0, len(log))
	for i, write := range log {
		if write.confirmed && (i <= shown || write.overwritten(authoritative)) {
			continue
		}
		kept = append(kept, write)
	}
	return kept
}

// sameContent compares the fields lifecycle writes change.
func sameContent(a, b task.Task) bool {
	if a.Status != b.Status || a.AssignedTo != b.AssignedTo || a.ClosedBy != b.ClosedBy ||
		a.Title != b.Title || a.Description != b.Description {
		return false
	}
	if !slices.Equal(a.AssignmentHistory, b.AssignmentHistory) || len(a.Comments) != len(b.Comments) {
		return false
	}
	for i := range a.Comments {
		if a.Comments[i].ID != b.Comments[i].ID {
			return false
		}
	}
	return true
}

type watcher struct {
	updates chan *State
}

// New returns a core with empty tables.
func New(backing store.Store, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Core{
		store:    backing,
		logger:   logger,
		writes:   make(map[string][]*localWrite),
		state:    emptyState(),
		watchers: make(map[*watcher]struct{}),
		ready:    make(chan struct{}),
	}
}

// Run subscribes to the task and user collections and applies their
// snapshots until ctx is cancelled (returning nil) or a feed fails
// (returning its error). Both subscriptions are closed on return, and
// no snapshot is applied after Run returns.
func (c *Core) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks, err := c.store.Subscribe(ctx, schema.KindTasks)
	if err != nil {
		return fmt.Errorf("subscribing to tasks: %w", err)
	}
	defer tasks.Close()

	users, err := c.store.Subscribe(ctx, schema.KindUsers)
	if err != nil {
		return fmt.Errorf("subscribing to users: %w", err)
	}
	defer users.Close()

	c.logger.Info("synchronization started")
	defer c.logger.Info("synchronization stopped")

	for {
		select {
		case <-ctx.Done():
			return nil

		case snapshot, ok := <-tasks.C():
			if !ok {
				return c.feedEnded(ctx, tasks)
			}
			c.applyTasks(snapshot)

		case snapshot, ok := <-users.C():
			if !ok {
				return c.feedEnded(ctx, users)
			}
			c.applyUsers(snapshot)
		}
	}
}

func (c *Core) feedEnded(ctx context.Context, subscription *store.Subscription) error {
	if err := subscription.Err(); err != nil {
		return fmt.Errorf("%s feed: %w", subscription.Kind(), err)
	}
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%s feed: %w: subscription closed", subscription.Kind(), store.ErrUnavailable)
}

// applyTasks replaces the task table with snapshot.
func (c *Core) applyTasks(snapshot store.Snapshot) {
	// Decoding happens outside the lock; only the previous table is
	// read, and only this goroutine writes it.
	c.mu.RLock()
	previous := make(map[string]*task.Task, len(c.authoritative))
	for i := range c.authoritative {
		previous[c.authoritative[i].ID] = &c.authoritative[i]
	}
	c.mu.RUnlock()

	decoded := make([]task.Task, 0, len(snapshot.Documents))
	for _, document := range snapshot.Documents {
		normalized, err := decodeTask(document, previous[document.ID])
		if err != nil {
			c.logger.Warn("skipping undecodable task", "task", document.ID, "error", err)
			continue
		}
		decoded = append(decoded, normalized)
	}
	ordered := orderTasks(decoded)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative = ordered
	c.tasksReady = true
	for id, log := range c.writes {
		index := indexOf(ordered, id)
		if index < 0 {
			continue
		}
		c.setWritesLocked(id, reconcileLog(log, ordered[index]))
	}
	c.publishLocked()
}

// applyUsers replaces the user table with snapshot.
func (c *Core) applyUsers(snapshot store.Snapshot) {
	decoded := make([]task.User, 0, len(snapshot.Documents))
	for _, document := range snapshot.Documents {
		user, err := decodeUser(document)
		if err != nil {
			c.logger.Warn("skipping undecodable user", "user", document.ID, "error", err)
			continue
		}
		decoded = append(decoded, user)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = decoded
	c.usersReady = true
	c.publishLocked()
}

func indexOf(tasks []task.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// publishLocked builds a new State from the tables and shadows and
// hands it to every watcher. Must be called with c.mu held for writing.
func (c *Core) publishLocked() {
	next := &State{
		Generation: c.state.Generation + 1,
		tasks:      make([]task.Task, len(c.authoritative)),
		taskIndex:  make(map[string]int, len(c.authoritative)),
		shadowed:   make(map[string]bool, len(c.writes)),
		users:      c.users,
		userIndex:  make(map[string]int, len(c.users)),
		tasksReady: c.tasksReady,
		usersReady: c.usersReady,
	}
	for i, authoritative := range c.authoritative {
		if log := c.writes[authoritative.ID]; len(log) > 0 {
			next.tasks[i] = layer(authoritative, log, false)
			next.shadowed[authoritative.ID] = true
		} else {
			next.tasks[i] = authoritative
		}
		next.taskIndex[authoritative.ID] = i
	}
	for i, user := range c.users {
		next.userIndex[user.ID] = i
	}
	c.state = next

	if next.Ready() {
		select {
		case <-c.ready:
		default:
			close(c.ready)
		}
	}

	for w := range c.watchers {
		select {
		case <-w.updates:
		default:
		}
		w.updates <- next
	}
}

// State returns the current state. It never changes after return.
func (c *Core) State() *State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Tasks returns the current ordered task table.
func (c *Core) Tasks() []task.Task { return c.State().Tasks() }

// Task returns the current state of one task, shadow included.
func (c *Core) Task(id string) (task.Task, bool) { return c.State().Task(id) }

// Users returns the current user table.
func (c *Core) Users() []task.User { return c.State().Users() }

// Ready is closed once both tables have been populated.
func (c *Core) Ready() <-chan struct{} { return c.ready }

// Watch returns a channel that receives the current State at once and
// every later State. Delivery coalesces: an unread State is replaced by
// the newer one. cancel stops delivery; the channel is not closed.
func (c *Core) Watch() (<-chan *State, func()) {
	w := &watcher{updates: make(chan *State, 1)}

	c.mu.Lock()
	c.watchers[w] = struct{}{}
	w.updates <- c.state
	c.mu.Unlock()

	var once sync.Once
	return w.updates, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, w)
			c.mu.Unlock()
		})
	}
}

// Settled returns task id as the store holds it: the authoritative
// record plus this client's confirmed writes the feed has not shown
// yet. Writes still in flight are left out, so a write that later
// fails can never leak into a decision based on Settled.
func (c *Core) Settled(id string) (task.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	index := indexOf(c.authoritative, id)
	if index < 0 {
		return task.Task{}, false
	}
	return layer(c.authoritative[index], c.writes[id], true), true
}

// Shadow layers apply over task id in every published State, from now
// until the store shows the write. settle reports the store's answer:
// settle(false) withdraws the write and rebuilds the task from the
// authoritative record and the writes still live; settle(true) makes
// it part of [Core.Settled] until the feed catches up. Only the first
// call to settle counts.
func (c *Core) Shadow(id string, apply func(*task.Task)) (settle func(ok bool)) {
	c.mu.Lock()
	write := &localWrite{apply: apply}
	c.writes[id] = append(c.writes[id], write)
	c.publishLocked()
	c.mu.Unlock()

	var once sync.Once
	return func(ok bool) {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			log := c.writes[id]
			position := slices.Index(log, write)
			if position < 0 {
				return
			}
			if !ok {
				c.setWritesLocked(id, slices.Delete(slices.Clone(log), position, position+1))
				c.publishLocked()
				return
			}
			// Every write ahead of this one may land as its own
			// revision before this one does.
			write.confirmed = true
			write.wait = position + 1
			if index := indexOf(c.authoritative, id); index >= 0 {
				write.revision = c.authoritative[index].Revision
				c.setWritesLocked(id, reconcileLog(log, c.authoritative[index]))
			}
			c.publishLocked()
		})
	}
}

func (c *Core) setWritesLocked(id string, log []*localWrite) {
	if len(log) == 0 {
		delete(c.writes, id)
		return
	}
	c.writes[id] = log
}

// layer applies the writes in log to a copy of authoritative, or only
// the confirmed ones.
func layer(authoritative task.Task, log []*localWrite, confirmedOnly bool) task.Task {
	layered := authoritative.Clone()
	for _, write := range log {
		if confirmedOnly && !write.confirmed {
			continue
		}
		write.apply(&layered)
	}
	return layered
}
