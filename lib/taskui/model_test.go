// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/taskview"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	updates chan taskview.Projection
	session taskview.Session
	stopped bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{updates: make(chan taskview.Projection, 1)}
}

func (source *fakeSource) Watch() (<-chan taskview.Projection, func()) {
	return source.updates, func() { source.stopped = true }
}

func (source *fakeSource) Session() taskview.Session { return source.session }

func (source *fakeSource) SetSession(session taskview.Session) { source.session = session }

func testTasks() []task.Task {
	return []task.Task{
		{
			ID: "t1", Title: "Deploy staging cluster", Description: "Roll out the new build.",
			AssignedTo: "u1", CreatedBy: "u2", Status: task.StatusOpen,
			DueAt: testNow.Add(48 * time.Hour), AssignmentHistory: []string{"u1"},
		},
		{
			ID: "t2", Title: "Write release notes", Description: "Cover the **storage** changes.",
			AssignedTo: "u1", CreatedBy: "u1", Status: task.StatusInProgress,
			DueAt: testNow.Add(-24 * time.Hour), AssignmentHistory: []string{"u2", "u1"},
			Comments: []task.Comment{{ID: "c1", AuthorID: "u2", AuthorName: "Grace", Text: "Handing this over."}},
		},
		{
			ID: "t3", Title: "Audit access logs", Description: "Check who read the logs.",
			AssignedTo: "u2", CreatedBy: "u1", Status: task.StatusClosed,
			DueAt: testNow.Add(-72 * time.Hour), AssignmentHistory: []string{"u2"}, ClosedBy: "u1",
		},
	}
}

func testProjection(tasks []task.Task) taskview.Projection {
	return taskview.Projection{
		Sequence:  1,
		Ready:     true,
		Session:   taskview.Session{ActorID: "u1"},
		Filtered:  tasks,
		Buckets:   taskview.Dashboard(tasks, "u1", testNow),
		Counts:    taskview.CountByStatus(tasks),
		Users:     []task.User{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Grace"}},
		DerivedAt: testNow,
	}
}

func update(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(message)
	result, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return result, cmd
}

func runes(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

// readyModel returns a sized model holding testProjection.
func readyModel(t *testing.T) (Model, *fakeSource) {
	t.Helper()
	source := newFakeSource()
	model := NewModel(source)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 120, Height: 24})
	model, _ = update(t, model, projectionMsg{projection: testProjection(testTasks())})
	return model, source
}

func screen(model Model) string {
	return ansi.Strip(model.View())
}

func TestModelLoadingUntilSized(t *testing.T) {
	model := NewModel(newFakeSource())
	if view := model.View(); view != "Loading..." {
		t.Errorf("View() = %q, want Loading...", view)
	}
}

func TestModelInitDeliversProjections(t *testing.T) {
	source := newFakeSource()
	model := NewModel(source)
	source.updates <- testProjection(testTasks())

	message := model.Init()()
	projection, ok := message.(projectionMsg)
	if !ok {
		t.Fatalf("Init command produced %T, want projectionMsg", message)
	}
	model, cmd := update(t, model, projection)
	if cmd == nil {
		t.Error("expected a command listening for the next projection")
	}
	if len(model.items) != 3 {
		t.Errorf("got %d items, want 3", len(model.items))
	}

	model.Close()
	if !source.stopped {
		t.Error("Close did not stop the subscription")
	}
}

func TestModelRendersBoard(t *testing.T) {
	model, _ := readyModel(t)
	view := screen(model)

	for _, want := range []string{"1:Board", "2:Dashboard", "status:all", "3 shown", "1 open", "1 overdue",
		"Deploy staging cluster", "Write release notes", "Audit access logs"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	lines := strings.Split(view, "\n")
	if len(lines) != 24 {
		t.Errorf("view has %d lines, want 24", len(lines))
	}
	for index, line := range lines {
		if width := ansi.StringWidth(line); width > 120 {
			t.Errorf("line %d is %d columns wide", index, width)
		}
	}
}

func TestModelDetailFollowsCursor(t *testing.T) {
	model, _ := readyModel(t)
	if model.selectedID != "t1" {
		t.Fatalf("initial selection = %q, want t1", model.selectedID)
	}
	view := screen(model)
	if !strings.Contains(view, "assignee: Ada") || !strings.Contains(view, "created by: Grace") {
		t.Errorf("detail missing assignee or creator:\n%s", view)
	}

	model, _ = update(t, model, runes("j"))
	if model.selectedID != "t2" {
		t.Fatalf("selection after j = %q, want t2", model.selectedID)
	}
	view = screen(model)
	for _, want := range []string{"OVERDUE", "history: Grace → Ada", "Cover the storage changes.", "Comments (1)", "Handing this over."} {
		if !strings.Contains(view, want) {
			t.Errorf("detail missing %q:\n%s", want, view)
		}
	}

	model, _ = update(t, model, runes("G"))
	if model.selectedID != "t3" {
		t.Errorf("selection after G = %q, want t3", model.selectedID)
	}
	model, _ = update(t, model, runes("g"))
	if model.selectedID != "t1" {
		t.Errorf("selection after g = %q, want t1", model.selectedID)
	}
}

func TestModelSelectionSurvivesProjection(t *testing.T) {
	model, _ := readyModel(t)
	model, _ = update(t, model, runes("j"))

	tasks := testTasks()
	reordered := []task.Task{tasks[2], tasks[0], tasks[1]}
	model, _ = update(t, model, projectionMsg{projection: testProjection(reordered)})
	if model.selectedID != "t2" || model.cursor != 2 {
		t.Errorf("selection = %q at %d, want t2 at 2", model.selectedID, model.cursor)
	}

	model, _ = update(t, model, projectionMsg{projection: testProjection(tasks[:1])})
	if model.selectedID != "t1" || model.cursor != 0 {
		t.Errorf("after removal selection = %q at %d, want t1 at 0", model.selectedID, model.cursor)
	}

	model, _ = update(t, model, projectionMsg{projection: testProjection(nil)})
	if model.selectedID != "" {
		t.Errorf("selection with no tasks = %q, want none", model.selectedID)
	}
	if !strings.Contains(screen(model), "No task selected") {
		t.Error("empty board should say no task is selected")
	}
}

func TestModelFilter(t *testing.T) {
	model, _ := readyModel(t)
	model, _ = update(t, model, runes("/"))
	if model.focus != focusFilter {
		t.Fatal("/ did not focus the filter")
	}
	model, _ = update(t, model, runes("deploy"))
	if len(model.items) != 1 || model.selectedID != "t1" {
		t.Fatalf("filtered items = %d selected %q, want only t1", len(model.items), model.selectedID)
	}
	if !strings.Contains(screen(model), "/ deploy") {
		t.Error("filter bar not shown while typing")
	}

	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.focus != focusList || model.filter.Input != "deploy" {
		t.Errorf("enter: focus %v input %q, want list focus with filter kept", model.focus, model.filter.Input)
	}
	if !strings.Contains(screen(model), "filter: deploy") {
		t.Error("kept filter not shown")
	}

	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if model.filter.Input != "" || len(model.items) != 3 {
		t.Errorf("esc left input %q and %d items", model.filter.Input, len(model.items))
	}
}

func TestModelFilterBackspace(t *testing.T) {
	model, _ := readyModel(t)
	model, _ = update(t, model, runes("/"))
	model, _ = update(t, model, runes("deployx"))
	if len(model.items) != 0 {
		t.Fatalf("got %d items for deployx, want 0", len(model.items))
	}
	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyBackspace})
	if len(model.items) != 1 {
		t.Errorf("got %d items after backspace, want 1", len(model.items))
	}
}

func TestModelDashboardTab(t *testing.T) {
	model, _ := readyModel(t)
	model, _ = update(t, model, runes("2"))
	if model.tab != TabDashboard {
		t.Fatal("2 did not switch to the dashboard")
	}

	view := screen(model)
	for _, want := range []string{"Overdue (1)", "Assigned to me (2)", "Created by me (1)", "Completed by me (1)"} {
		if !strings.Contains(view, want) {
			t.Errorf("dashboard missing %q:\n%s", want, view)
		}
	}

	if model.selectedID != "t1" || model.items[model.cursor].isHeader() {
		t.Errorf("selection = %q (header %v), want t1 kept", model.selectedID, model.items[model.cursor].isHeader())
	}

	model, _ = update(t, model, runes("g"))
	if model.cursor != 1 || model.selectedID != "t2" {
		t.Errorf("g: cursor %d selected %q, want the first task row", model.cursor, model.selectedID)
	}
	model, _ = update(t, model, runes("k"))
	if model.cursor != 1 {
		t.Errorf("k above the first task moved the cursor to %d", model.cursor)
	}
}

func TestModelStatusCycle(t *testing.T) {
	model, source := readyModel(t)
	source.session = taskview.Session{ActorID: "u1"}

	want := []string{"open", "in_progress", "in_review", "completed", "closed", "all"}
	for _, status := range want {
		model, _ = update(t, model, runes("s"))
		if source.session.StatusFilter != status {
			t.Fatalf("status filter = %q, want %q", source.session.StatusFilter, status)
		}
		if source.session.ActorID != "u1" {
			t.Fatal("status cycling lost the actor")
		}
	}
}

func TestModelDetailScroll(t *testing.T) {
	model, _ := readyModel(t)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 120, Height: 6})
	model, _ = update(t, model, runes("j"))
	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyTab})
	if model.focus != focusDetail {
		t.Fatal("tab did not focus the detail pane")
	}

	model, _ = update(t, model, runes("G"))
	last := len(model.detail) - model.contentHeight()
	if last <= 0 || model.detailOffset != last {
		t.Fatalf("detail offset = %d, want %d", model.detailOffset, last)
	}
	if model.selectedID != "t2" {
		t.Error("scrolling the detail pane moved the list cursor")
	}
	model, _ = update(t, model, runes("j"))
	if model.detailOffset != last {
		t.Errorf("scrolled past the end to %d", model.detailOffset)
	}
}

func TestModelQuit(t *testing.T) {
	model, _ := readyModel(t)
	_, cmd := update(t, model, runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModelNotReadyHeader(t *testing.T) {
	source := newFakeSource()
	model := NewModel(source)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 80, Height: 10})
	model, _ = update(t, model, projectionMsg{projection: taskview.Projection{Sequence: 1}})
	view := screen(model)
	if !strings.Contains(view, "syncing…") || !strings.Contains(view, "Waiting for the task table") {
		t.Errorf("unready view:\n%s", view)
	}
}
