// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasksync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
	"github.com/bureau-foundation/taskboard/lib/testutil"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func taskFields(title, assignee, creator string) store.Fields {
	return store.Fields{
		task.FieldTitle:             title,
		task.FieldDescription:       "Description of " + title,
		task.FieldAssignedTo:        assignee,
		task.FieldCreatedBy:         creator,
		task.FieldStatus:            task.StatusOpen,
		task.FieldDueAt:             schema.TimestampOf(testEpoch.Add(24 * time.Hour)),
		task.FieldCreatedAt:         schema.ServerTimestamp,
		task.FieldUpdatedAt:         schema.ServerTimestamp,
		task.FieldAssignmentHistory: []string{assignee},
		task.FieldComments:          []task.CommentRecord{},
	}
}

// startCore runs a core over backing until the test ends and waits for
// both tables to be populated.
func startCore(t *testing.T, backing store.Store) *Core {
	t.Helper()
	core := New(backing, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- core.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "Run did not return"); err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	testutil.RequireClosed(t, core.Ready(), 5*time.Second, "core never became ready")
	return core
}

// awaitState reads watcher states until match accepts one.
func awaitState(t *testing.T, updates <-chan *State, match func(*State) bool) *State {
	t.Helper()
	for {
		state := testutil.RequireReceive(t, updates, 5*time.Second, "waiting for matching state")
		if match(state) {
			return state
		}
	}
}

func hasTask(id string) func(*State) bool {
	return func(s *State) bool {
		_, found := s.Task(id)
		return found
	}
}

func TestSnapshotsReplaceTables(t *testing.T) {
	fakeClock := clock.Fake(testEpoch)
	memory := store.NewMemory(store.MemoryOptions{Clock: fakeClock})
	core := startCore(t, memory)
	updates, cancel := core.Watch()
	defer cancel()
	ctx := context.Background()

	first, err := memory.Create(ctx, schema.KindTasks, taskFields("first", "u1", "u2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fakeClock.Advance(time.Second)
	second, err := memory.Create(ctx, schema.KindTasks, taskFields("second", "u2", "u1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := memory.Create(ctx, schema.KindUsers, store.Fields{"id": "u1", "name": "Ada", "approved": true}); err != nil {
		t.Fatalf("Create user: %v", err)
	}

	state := awaitState(t, updates, func(s *State) bool { return len(s.Tasks()) == 2 && len(s.Users()) == 1 })
	if state.Tasks()[0].ID != first || state.Tasks()[1].ID != second {
		t.Errorf("order = [%s %s], want [%s %s]", state.Tasks()[0].ID, state.Tasks()[1].ID, first, second)
	}
	got, found := state.Task(first)
	if !found {
		t.Fatal("first task missing")
	}
	if !got.CreatedAt.Equal(testEpoch) || got.CreatedAt.Location() != time.UTC {
		t.Errorf("createdAt = %v, want %v in UTC", got.CreatedAt, testEpoch)
	}
	if !got.DueAt.Equal(testEpoch.Add(24 * time.Hour)) {
		t.Errorf("dueAt = %v", got.DueAt)
	}
	if got.Pending {
		t.Error("committed task is pending")
	}
	user, found := state.User("u1")
	if !found || user.Name != "Ada" || !user.Approved {
		t.Errorf("user = %+v, found=%v", user, found)
	}
	if !state.Ready() {
		t.Error("state with both tables applied is not ready")
	}
}

func TestGenerationIncreases(t *testing.T) {
	memory := store.NewMemory(store.MemoryOptions{Clock: clock.Fake(testEpoch)})
	core := startCore(t, memory)
	before := core.State().Generation

	if _, err := memory.Create(context.Background(), schema.KindTasks, taskFields("t", "u1", "u2")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	updates, cancel := core.Watch()
	defer cancel()
	state := awaitState(t, updates, func(s *State) bool { return len(s.Tasks()) == 1 })
	if state.Generation <= before {
		t.Errorf("generation %d did not advance past %d", state.Generation, before)
	}
}

func TestOrderingByCreatedAtThenID(t *testing.T) {
	tasks := []task.Task{
		{ID: "c", CreatedAt: testEpoch.Add(time.Minute)},
		{ID: "pending-1", Pending: true},
		{ID: "b", CreatedAt: testEpoch},
		{ID: "a", CreatedAt: testEpoch},
		{ID: "pending-0", Pending: true, CreatedAt: testEpoch.Add(-time.Hour)},
	}
	ordered := orderTasks(tasks)
	want := []string{"a", "b", "c", "pending-1", "pending-0"}
	for i, id := range want {
		if ordered[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, ordered[i].ID, id)
		}
	}
}

func TestPendingTimestampsExcludedUntilFinalized(t *testing.T) {
	memory := store.NewMemory(store.MemoryOptions{Clock: clock.Fake(testEpoch)})
	ctx := context.Background()
	id, err := memory.Create(ctx, schema.KindTasks, taskFields("echoed", "u1", "u2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var committed store.Document
	{
		subscription, err := memory.Subscribe(ctx, schema.KindTasks)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		committed = testutil.RequireReceive(t, subscription.C(), 5*time.Second).Documents[0]
		subscription.Close()
	}

	previous, err := decodeTask(committed, nil)
	if err != nil {
		t.Fatalf("decodeTask: %v", err)
	}

	// An echo of an update: updatedAt absent until the commit.
	echo := store.Document{ID: id, Revision: committed.Revision, Pending: true, Fields: store.Fields{}}
	for key, value := range committed.Fields {
		echo.Fields[key] = value
	}
	delete(echo.Fields, task.FieldUpdatedAt)
	echo.Fields[task.FieldStatus] = string(task.StatusInProgress)

	pending, err := decodeTask(echo, &previous)
	if err != nil {
		t.Fatalf("decodeTask(echo): %v", err)
	}
	if !pending.Pending {
		t.Fatal("echo without updatedAt is not pending")
	}
	if !pending.UpdatedAt.Equal(previous.UpdatedAt) {
		t.Errorf("pending updatedAt = %v, want previous %v", pending.UpdatedAt, previous.UpdatedAt)
	}
	if pending.Status != task.StatusInProgress {
		t.Errorf("pending status = %s, want the echoed in_progress", pending.Status)
	}

	unknown, err := decodeTask(echo, nil)
	if err != nil {
		t.Fatalf("decodeTask(echo, nil): %v", err)
	}
	if !unknown.UpdatedAt.IsZero() {
		t.Errorf("pending with no history has updatedAt %v", unknown.UpdatedAt)
	}
}

func TestEchoedCreateAppearsPendingThenResolves(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	updates, cancel := core.Watch()
	defer cancel()

	// Snapshots applied directly, in the shape an echoing store delivers.
	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{
		{ID: "z-committed", Revision: "r1", Fields: fieldsWithTimestamps(taskFields("z", "u1", "u2"), testEpoch)},
		{ID: "a-echo", Pending: true, Fields: withoutServerTimestamps(taskFields("a", "u1", "u2"))},
	}})
	state := awaitState(t, updates, func(s *State) bool { return len(s.Tasks()) == 2 })
	if state.Tasks()[0].ID != "z-committed" || state.Tasks()[1].ID != "a-echo" {
		t.Errorf("pending task was ordered: %s, %s", state.Tasks()[0].ID, state.Tasks()[1].ID)
	}
	if !state.Tasks()[1].Pending {
		t.Error("echo not marked pending")
	}

	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{
		{ID: "z-committed", Revision: "r1", Fields: fieldsWithTimestamps(taskFields("z", "u1", "u2"), testEpoch)},
		{ID: "a-echo", Revision: "r2", Fields: fieldsWithTimestamps(taskFields("a", "u1", "u2"), testEpoch)},
	}})
	state = awaitState(t, updates, func(s *State) bool { return len(s.Tasks()) == 2 && !s.Tasks()[0].Pending && !s.Tasks()[1].Pending })
	if state.Tasks()[0].ID != "a-echo" {
		t.Errorf("resolved task not ordered by (createdAt, id): first is %s", state.Tasks()[0].ID)
	}
}

func fieldsWithTimestamps(fields store.Fields, at time.Time) store.Fields {
	for key, value := range fields {
		if schema.IsServerTimestamp(value) {
			fields[key] = schema.TimestampOf(at)
		}
	}
	return fields
}

func withoutServerTimestamps(fields store.Fields) store.Fields {
	for key, value := range fields {
		if schema.IsServerTimestamp(value) {
			delete(fields, key)
		}
	}
	return fields
}

func TestUndecodableRecordSkipped(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	broken := fieldsWithTimestamps(taskFields("broken", "u1", "u2"), testEpoch)
	broken[task.FieldAssignmentHistory] = []string{"someone-else"}

	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{
		{ID: "good", Revision: "r1", Fields: fieldsWithTimestamps(taskFields("good", "u1", "u2"), testEpoch)},
		{ID: "broken", Revision: "r2", Fields: broken},
		{ID: "garbage", Revision: "r3", Fields: store.Fields{task.FieldDueAt: "tomorrow"}},
	}})

	tasks := core.Tasks()
	if len(tasks) != 1 || tasks[0].ID != "good" {
		t.Errorf("tasks = %v, want only the decodable one", tasks)
	}
}

func setStatus(status task.Status) func(*task.Task) {
	return func(t *task.Task) { t.Status = status }
}

func TestShadowVisibleUntilSuperseded(t *testing.T) {
	memory := store.NewMemory(store.MemoryOptions{Clock: clock.Fake(testEpoch)})
	core := startCore(t, memory)
	updates, cancel := core.Watch()
	defer cancel()
	ctx := context.Background()

	id, err := memory.Create(ctx, schema.KindTasks, taskFields("shadowed", "u1", "u2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	state := awaitState(t, updates, hasTask(id))
	base, _ := state.Task(id)

	settle := core.Shadow(id, setStatus(task.StatusInProgress))

	state = awaitState(t, updates, func(s *State) bool { return s.Optimistic(id) })
	if got, _ := state.Task(id); got.Status != task.StatusInProgress {
		t.Errorf("shadowed status = %s, want in_progress", got.Status)
	}
	if settled, _ := core.Settled(id); settled.Status != task.StatusOpen {
		t.Errorf("settled status = %s while the write is in flight, want open", settled.Status)
	}

	if err := memory.Update(ctx, schema.KindTasks, id, store.Fields{task.FieldStatus: task.StatusInProgress}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	settle(true)
	if settled, _ := core.Settled(id); settled.Status != task.StatusInProgress {
		t.Errorf("settled status = %s after confirmation, want in_progress", settled.Status)
	}

	state = awaitState(t, updates, func(s *State) bool { return !s.Optimistic(id) })
	got, _ := state.Task(id)
	if got.Status != task.StatusInProgress || got.Revision == base.Revision {
		t.Errorf("after commit: status %s revision %s (base %s)", got.Status, got.Revision, base.Revision)
	}
}

func TestShadowRollback(t *testing.T) {
	memory := store.NewMemory(store.MemoryOptions{Clock: clock.Fake(testEpoch)})
	core := startCore(t, memory)
	updates, cancel := core.Watch()
	defer cancel()

	id, err := memory.Create(context.Background(), schema.KindTasks, taskFields("rollback", "u1", "u2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	awaitState(t, updates, hasTask(id))

	settle := core.Shadow(id, setStatus(task.StatusInProgress))
	awaitState(t, updates, func(s *State) bool { return s.Optimistic(id) })

	settle(false)
	state := awaitState(t, updates, func(s *State) bool { return !s.Optimistic(id) })
	if got, _ := state.Task(id); got.Status != task.StatusOpen {
		t.Errorf("status after rollback = %s, want open", got.Status)
	}
	settle(true)
	if core.State().Optimistic(id) {
		t.Error("a second settle reinstated the withdrawn write")
	}
}

func TestRollbackRebuildsFromLiveWrites(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	fields := fieldsWithTimestamps(taskFields("layered", "u1", "u2"), testEpoch)
	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: "r1", Fields: fields}}})

	first := core.Shadow("t1", setStatus(task.StatusInProgress))
	core.Shadow("t1", func(t *task.Task) { t.Title = "retitled" })
	if got, _ := core.Task("t1"); got.Status != task.StatusInProgress || got.Title != "retitled" {
		t.Fatalf("layered task = %+v, want both writes", got)
	}

	// The older write fails while the newer one is still in flight.
	first(false)
	got, _ := core.Task("t1")
	if got.Status != task.StatusOpen {
		t.Errorf("status = %s, want the failed write gone", got.Status)
	}
	if got.Title != "retitled" || !core.State().Optimistic("t1") {
		t.Errorf("task = %+v, want the live write kept", got)
	}
	if settled, _ := core.Settled("t1"); settled.Status != task.StatusOpen || settled.Title != "layered" {
		t.Errorf("settled = %+v, want the authoritative record", settled)
	}
}

func TestChainedShadowsWaitForEveryWrite(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	revision := func(rev string, status task.Status) store.Snapshot {
		fields := fieldsWithTimestamps(taskFields("chained", "u1", "u2"), testEpoch)
		fields[task.FieldStatus] = string(status)
		return store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: rev, Fields: fields}}}
	}

	core.applyTasks(revision("r1", task.StatusOpen))

	begin := core.Shadow("t1", setStatus(task.StatusInProgress))
	begin(true)
	submit := core.Shadow("t1", setStatus(task.StatusInReview))
	submit(true)
	if settled, _ := core.Settled("t1"); settled.Status != task.StatusInReview {
		t.Fatalf("settled status = %s, want in_review", settled.Status)
	}

	core.applyTasks(revision("r2", task.StatusInProgress))
	if !core.State().Optimistic("t1") {
		t.Fatal("first commit removed a write still waiting for its own")
	}
	if got, _ := core.Task("t1"); got.Status != task.StatusInReview {
		t.Errorf("status = %s, want the shadowed in_review", got.Status)
	}

	core.applyTasks(revision("r3", task.StatusInReview))
	if core.State().Optimistic("t1") {
		t.Error("shadow survived the commit that shows its content")
	}
}

func TestCoalescedRevisionRetiresEarlierWrites(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	revision := func(rev string, status task.Status) store.Snapshot {
		fields := fieldsWithTimestamps(taskFields("coalesced", "u1", "u2"), testEpoch)
		fields[task.FieldStatus] = string(status)
		return store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: rev, Fields: fields}}}
	}

	core.applyTasks(revision("r1", task.StatusOpen))
	core.Shadow("t1", setStatus(task.StatusInProgress))(true)
	core.Shadow("t1", setStatus(task.StatusInReview))(true)
	core.Shadow("t1", setStatus(task.StatusInProgress))(true)

	// The feed skips the intermediate revisions and delivers only the last.
	core.applyTasks(revision("r4", task.StatusInProgress))
	if core.State().Optimistic("t1") {
		t.Error("an earlier write outlived the revision that shows a later one")
	}
	if got, _ := core.Task("t1"); got.Status != task.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}

func TestPendingWriteSurvivesRevisions(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	fields := fieldsWithTimestamps(taskFields("pending", "u1", "u2"), testEpoch)
	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: "r1", Fields: fields}}})

	core.Shadow("t1", setStatus(task.StatusInProgress))
	foreign := fieldsWithTimestamps(taskFields("retitled", "u1", "u2"), testEpoch)
	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: "r2", Fields: foreign}}})

	got, _ := core.Task("t1")
	if !core.State().Optimistic("t1") || got.Status != task.StatusInProgress || got.Title != "retitled" {
		t.Errorf("task = %+v, want the unsettled write layered over the new revision", got)
	}
}

func TestConfirmedWriteYieldsToForeignWrite(t *testing.T) {
	core := New(store.NewMemory(store.MemoryOptions{}), nil)
	fields := fieldsWithTimestamps(taskFields("raced", "u1", "u2"), testEpoch)
	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: "r1", Fields: fields}}})

	core.Shadow("t1", setStatus(task.StatusInProgress))(true)

	// Another writer's revision lands instead of ours.
	foreign := fieldsWithTimestamps(taskFields("retitled", "u1", "u2"), testEpoch)
	core.applyTasks(store.Snapshot{Kind: schema.KindTasks, Documents: []store.Document{{ID: "t1", Revision: "r2", Fields: foreign}}})

	got, _ := core.Task("t1")
	if core.State().Optimistic("t1") || got.Title != "retitled" || got.Status != task.StatusOpen {
		t.Errorf("task = %+v, want the authoritative revision", got)
	}
}

func TestRunStopsOnCancelWithoutFurtherUpdates(t *testing.T) {
	memory := store.NewMemory(store.MemoryOptions{Clock: clock.Fake(testEpoch)})
	core := New(memory, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- core.Run(ctx) }()
	testutil.RequireClosed(t, core.Ready(), 5*time.Second, "core never became ready")

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run did not return"); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}

	generation := core.State().Generation
	if _, err := memory.Create(context.Background(), schema.KindTasks, taskFields("late", "u1", "u2")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if core.State().Generation != generation || len(core.Tasks()) != 0 {
		t.Error("table changed after Run returned")
	}
}

func TestRunReportsSubscribeFailure(t *testing.T) {
	remote := store.NewRemote(testutil.SocketDir(t)+"/absent.sock", store.RemoteOptions{})
	err := New(remote, nil).Run(context.Background())
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Run error = %v, want ErrUnavailable", err)
	}
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	memory := store.NewMemory(store.MemoryOptions{Clock: clock.Fake(testEpoch)})
	core := startCore(t, memory)

	updates, cancel := core.Watch()
	testutil.RequireReceive(t, updates, 5*time.Second, "initial state")
	cancel()
	cancel()

	if _, err := memory.Create(context.Background(), schema.KindTasks, taskFields("unwatched", "u1", "u2")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	testutil.RequireNoReceive(t, updates, 20*time.Millisecond, "state after cancel")
}
