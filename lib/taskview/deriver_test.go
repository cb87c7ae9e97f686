// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/lifecycle"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
	"github.com/bureau-foundation/taskboard/lib/tasksync"
	"github.com/bureau-foundation/taskboard/lib/testutil"
)

type viewHarness struct {
	clock   *clock.FakeClock
	engine  *lifecycle.Engine
	core    *tasksync.Core
	deriver *Deriver
}

func newViewHarness(t *testing.T, session Session) *viewHarness {
	t.Helper()
	h := &viewHarness{clock: clock.Fake(testEpoch)}
	memory := store.NewMemory(store.MemoryOptions{Clock: h.clock})
	h.core = tasksync.New(memory, nil)
	h.engine = lifecycle.New(lifecycle.Config{Store: memory, Tasks: h.core, Clock: h.clock})
	h.deriver = NewDeriver(DeriverConfig{
		Source:  h.core,
		Session: session,
		Clock:   h.clock,
		Refresh: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	coreDone := make(chan error, 1)
	deriverDone := make(chan error, 1)
	go func() { coreDone <- h.core.Run(ctx) }()
	go func() { deriverDone <- h.deriver.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, deriverDone, 5*time.Second, "deriver did not stop")
		testutil.RequireReceive(t, coreDone, 5*time.Second, "sync core did not stop")
	})
	testutil.RequireClosed(t, h.core.Ready(), 5*time.Second, "sync core never became ready")
	return h
}

func (h *viewHarness) create(t *testing.T, title, assignee, creator string, due time.Time) string {
	t.Helper()
	id, err := h.engine.Create(context.Background(), lifecycle.Draft{
		Title:       title,
		Description: "Description of " + title,
		AssignedTo:  assignee,
		DueAt:       due,
	}, creator)
	if err != nil {
		t.Fatalf("Create(%s): %v", title, err)
	}
	return id
}

func awaitProjection(t *testing.T, updates <-chan Projection, match func(Projection) bool) Projection {
	t.Helper()
	for {
		projection := testutil.RequireReceive(t, updates, 5*time.Second, "waiting for projection")
		if match(projection) {
			return projection
		}
	}
}

func TestOverdueScenario(t *testing.T) {
	h := newViewHarness(t, Session{ActorID: "u1"})
	id := h.create(t, "File the report", "u1", "u2", testEpoch.Add(-24*time.Hour))

	updates, cancel := h.deriver.Watch()
	defer cancel()
	assigned := awaitProjection(t, updates, func(p Projection) bool { return len(p.Buckets.AssignedToMe) == 1 })
	if got := ids(assigned.Buckets.Overdue); !slices.Equal(got, []string{id}) {
		t.Errorf("u1 Overdue = %v, want [%s]", got, id)
	}
	if len(assigned.Buckets.CreatedByMe) != 0 || len(assigned.Buckets.CompletedByMe) != 0 {
		t.Errorf("u1 creator buckets = %+v", assigned.Buckets)
	}

	h.deriver.SetSession(Session{ActorID: "u2"})
	creator := awaitProjection(t, updates, func(p Projection) bool { return p.Session.ActorID == "u2" })
	if got := ids(creator.Buckets.CreatedByMe); !slices.Equal(got, []string{id}) {
		t.Errorf("u2 CreatedByMe = %v, want [%s]", got, id)
	}
	if len(creator.Buckets.CompletedByMe) != 0 || len(creator.Buckets.AssignedToMe) != 0 {
		t.Errorf("u2 buckets = %+v", creator.Buckets)
	}
}

func TestOverdueFollowsClockWithoutWrites(t *testing.T) {
	h := newViewHarness(t, Session{ActorID: "u1"})
	id := h.create(t, "Renew certificate", "u1", "u2", testEpoch.Add(30*time.Second))

	updates, cancel := h.deriver.Watch()
	defer cancel()
	before := awaitProjection(t, updates, func(p Projection) bool { return len(p.Buckets.AssignedToMe) == 1 })
	if len(before.Buckets.Overdue) != 0 {
		t.Fatalf("task overdue before its due date: %v", ids(before.Buckets.Overdue))
	}
	generation := before.Generation

	h.clock.WaitForTickers(1)
	h.clock.Advance(time.Minute)

	after := awaitProjection(t, updates, func(p Projection) bool { return len(p.Buckets.Overdue) == 1 })
	if after.Buckets.Overdue[0].ID != id {
		t.Errorf("overdue = %v, want [%s]", ids(after.Buckets.Overdue), id)
	}
	if after.Generation != generation {
		t.Errorf("table generation moved from %d to %d without a write", generation, after.Generation)
	}
	if !after.DerivedAt.Equal(testEpoch.Add(time.Minute)) {
		t.Errorf("derivedAt = %v", after.DerivedAt)
	}
}

func TestProjectionFollowsTableAndSession(t *testing.T) {
	h := newViewHarness(t, Session{ActorID: "u1", StatusFilter: StatusAll})
	first := h.create(t, "Urgent fix", "u1", "u2", testEpoch.Add(time.Hour))
	h.create(t, "Routine chore", "u1", "u2", testEpoch.Add(2*time.Hour))

	updates, cancel := h.deriver.Watch()
	defer cancel()
	awaitProjection(t, updates, func(p Projection) bool { return len(p.Filtered) == 2 })

	h.deriver.SetSession(Session{ActorID: "u1", SearchTerm: "urgent"})
	searched := awaitProjection(t, updates, func(p Projection) bool { return p.Session.SearchTerm == "urgent" })
	if got := ids(searched.Filtered); !slices.Equal(got, []string{first}) {
		t.Errorf("Filtered = %v, want [%s]", got, first)
	}
	if h.deriver.Session().SearchTerm != "urgent" {
		t.Error("Session() does not report the new session")
	}

	if err := h.engine.BeginWork(context.Background(), first, lifecycle.Actor{ID: "u1"}); err != nil {
		t.Fatalf("BeginWork: %v", err)
	}
	h.deriver.SetSession(Session{ActorID: "u1", StatusFilter: string(task.StatusInProgress)})
	progressing := awaitProjection(t, updates, func(p Projection) bool {
		return p.Session.StatusFilter == string(task.StatusInProgress) && len(p.Filtered) == 1
	})
	if progressing.Filtered[0].ID != first {
		t.Errorf("Filtered = %v", ids(progressing.Filtered))
	}
	if progressing.Counts[task.StatusInProgress] != 1 || progressing.Counts[task.StatusOpen] != 1 {
		t.Errorf("counts = %v", progressing.Counts)
	}
	if current := h.deriver.Current(); current.Sequence < progressing.Sequence {
		t.Errorf("Current sequence %d behind delivered %d", current.Sequence, progressing.Sequence)
	}
}

func TestSetSessionDerivesBeforeReturning(t *testing.T) {
	h := newViewHarness(t, Session{ActorID: "u1", StatusFilter: StatusAll})
	wanted := h.create(t, "Patch the gateway", "u1", "u2", testEpoch.Add(time.Hour))
	h.create(t, "Water the plants", "u1", "u2", testEpoch.Add(time.Hour))

	updates, cancel := h.deriver.Watch()
	defer cancel()
	before := awaitProjection(t, updates, func(p Projection) bool { return len(p.Filtered) == 2 })

	h.deriver.SetSession(Session{ActorID: "u2", SearchTerm: "gateway"})
	current := h.deriver.Current()
	if current.Session.ActorID != "u2" || current.Session.SearchTerm != "gateway" {
		t.Fatalf("Current session = %+v right after SetSession", current.Session)
	}
	if got := ids(current.Filtered); !slices.Equal(got, []string{wanted}) {
		t.Errorf("Filtered = %v, want [%s]", got, wanted)
	}
	if current.Sequence <= before.Sequence {
		t.Errorf("sequence %d not past %d", current.Sequence, before.Sequence)
	}
	awaitProjection(t, updates, func(p Projection) bool { return p.Session.SearchTerm == "gateway" })
}

func TestSetSessionBeforeAnyState(t *testing.T) {
	core := tasksync.New(store.NewMemory(store.MemoryOptions{}), nil)
	deriver := NewDeriver(DeriverConfig{Source: core, Clock: clock.Fake(testEpoch)})
	deriver.SetSession(Session{ActorID: "u1"})
	if current := deriver.Current(); current.Sequence != 0 {
		t.Errorf("projection derived without a table state: %+v", current)
	}
	if deriver.Session().ActorID != "u1" {
		t.Error("session not kept for the first derivation")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	h := newViewHarness(t, Session{ActorID: "u1"})
	other := NewDeriver(DeriverConfig{Source: h.core, Session: Session{ActorID: "u2"}, Clock: h.clock})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- other.Run(ctx) }()
	defer func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "second deriver did not stop")
	}()

	h.create(t, "Shared", "u1", "u2", testEpoch.Add(time.Hour))
	h.deriver.SetSession(Session{ActorID: "u1", SearchTerm: "nothing matches this"})

	otherUpdates, stop := other.Watch()
	defer stop()
	projection := awaitProjection(t, otherUpdates, func(p Projection) bool { return len(p.Filtered) == 1 })
	if projection.Session.SearchTerm != "" || projection.Session.ActorID != "u2" {
		t.Errorf("second deriver session = %+v", projection.Session)
	}
}

func TestDeriveBeforeReady(t *testing.T) {
	core := tasksync.New(store.NewMemory(store.MemoryOptions{}), nil)
	projection := Derive(core.State(), Session{ActorID: "u1"}, testEpoch)
	if projection.Ready || len(projection.Filtered) != 0 || projection.Buckets.AssignedToMe == nil {
		t.Errorf("projection of an empty state = %+v", projection)
	}
}
