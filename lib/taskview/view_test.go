// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "t1", Title: "Urgent: rotate keys", Description: "quarterly", Status: task.StatusOpen,
			AssignedTo: "u1", CreatedBy: "u2", DueAt: testEpoch.Add(48 * time.Hour)},
		{ID: "t2", Title: "Invoices", Description: "send the URGENT ones first", Status: task.StatusInProgress,
			AssignedTo: "u1", CreatedBy: "u2", DueAt: testEpoch.Add(-time.Hour)},
		{ID: "t3", Title: "Outage report", Description: "database", Status: task.StatusInReview,
			AssignedTo: "u2", CreatedBy: "u1", DueAt: testEpoch.Add(time.Hour)},
		{ID: "t4", Title: "Old cleanup", Description: "urgently needed once", Status: task.StatusClosed,
			AssignedTo: "u1", CreatedBy: "u1", DueAt: testEpoch.Add(-72 * time.Hour)},
		{ID: "t5", Title: "Hire", Description: "onboarding", Status: task.StatusCompleted,
			AssignedTo: "u1", CreatedBy: "u3", DueAt: testEpoch.Add(-2 * time.Hour)},
	}
}

func TestFilteredTasks(t *testing.T) {
	tasks := sampleTasks()
	tests := []struct {
		name   string
		search string
		status string
		want   []string
	}{
		{"no filter", "", StatusAll, []string{"t1", "t2", "t3", "t4", "t5"}},
		{"empty status filter", "", "", []string{"t1", "t2", "t3", "t4", "t5"}},
		{"search title or description, any case", "urgent", StatusAll, []string{"t1", "t2", "t4"}},
		{"search is trimmed", "  URGENT\t", "all", []string{"t1", "t2", "t4"}},
		{"whitespace-only search is no filter", " \t ", StatusAll, []string{"t1", "t2", "t3", "t4", "t5"}},
		{"status only", "", "in_review", []string{"t3"}},
		{"search and status", "urgent", "open", []string{"t1"}},
		{"no match", "kubernetes", StatusAll, []string{}},
		{"unknown status matches nothing", "", "archived", []string{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ids(FilteredTasks(tasks, test.search, test.status))
			if !slices.Equal(got, test.want) {
				t.Errorf("FilteredTasks(%q, %q) = %v, want %v", test.search, test.status, got, test.want)
			}
		})
	}
}

func TestFilteredTasksDoesNotAliasInput(t *testing.T) {
	tasks := sampleTasks()
	filtered := FilteredTasks(tasks, "", StatusAll)
	filtered[0].Title = "changed"
	if tasks[0].Title == "changed" {
		t.Error("filtered slice shares storage with the input")
	}
}

func TestValidStatusFilter(t *testing.T) {
	for _, filter := range []string{"", "all", "open", "in_progress", "in_review", "completed", "closed"} {
		if !ValidStatusFilter(filter) {
			t.Errorf("ValidStatusFilter(%q) = false", filter)
		}
	}
	for _, filter := range []string{"ALL", "done", "Open"} {
		if ValidStatusFilter(filter) {
			t.Errorf("ValidStatusFilter(%q) = true", filter)
		}
	}
}

func TestDashboard(t *testing.T) {
	tasks := sampleTasks()
	buckets := Dashboard(tasks, "u1", testEpoch)

	if got := ids(buckets.AssignedToMe); !slices.Equal(got, []string{"t5", "t2", "t1"}) {
		t.Errorf("AssignedToMe = %v, want [t5 t2 t1] by due date", got)
	}
	if got := ids(buckets.Overdue); !slices.Equal(got, []string{"t5", "t2"}) {
		t.Errorf("Overdue = %v, want [t5 t2]", got)
	}
	if got := ids(buckets.CreatedByMe); !slices.Equal(got, []string{"t3"}) {
		t.Errorf("CreatedByMe = %v, want [t3]", got)
	}
	if got := ids(buckets.CompletedByMe); !slices.Equal(got, []string{"t4"}) {
		t.Errorf("CompletedByMe = %v, want [t4]", got)
	}
}

func TestDashboardPartition(t *testing.T) {
	tasks := []task.Task{
		{ID: "working", AssignedTo: "me", CreatedBy: "other", Status: task.StatusInProgress, DueAt: testEpoch.Add(time.Hour)},
		{ID: "done", AssignedTo: "other", CreatedBy: "me", Status: task.StatusClosed, DueAt: testEpoch.Add(time.Hour)},
	}
	buckets := Dashboard(tasks, "me", testEpoch)
	if got := ids(buckets.AssignedToMe); !slices.Equal(got, []string{"working"}) {
		t.Errorf("AssignedToMe = %v", got)
	}
	if len(buckets.CreatedByMe) != 0 {
		t.Errorf("CreatedByMe = %v, want empty", ids(buckets.CreatedByMe))
	}
	if got := ids(buckets.CompletedByMe); !slices.Equal(got, []string{"done"}) {
		t.Errorf("CompletedByMe = %v", got)
	}
}

func TestDashboardDueDateTiesByID(t *testing.T) {
	due := testEpoch.Add(time.Hour)
	tasks := []task.Task{
		{ID: "b", AssignedTo: "me", Status: task.StatusOpen, DueAt: due},
		{ID: "a", AssignedTo: "me", Status: task.StatusOpen, DueAt: due},
	}
	if got := ids(Dashboard(tasks, "me", testEpoch).AssignedToMe); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("AssignedToMe = %v, want [a b]", got)
	}
}

func TestDashboardNoActor(t *testing.T) {
	buckets := Dashboard(sampleTasks(), "", testEpoch)
	if buckets.AssignedToMe == nil || len(buckets.AssignedToMe)+len(buckets.CreatedByMe)+len(buckets.CompletedByMe) != 0 {
		t.Errorf("anonymous dashboard = %+v, want empty non-nil buckets", buckets)
	}
}

func TestIsOverdue(t *testing.T) {
	due := testEpoch
	open := task.Task{Status: task.StatusOpen, DueAt: due}
	if IsOverdue(open, due) {
		t.Error("task is overdue at its due instant")
	}
	if !IsOverdue(open, due.Add(time.Nanosecond)) {
		t.Error("task is not overdue after its due instant")
	}
	closed := task.Task{Status: task.StatusClosed, DueAt: due}
	if IsOverdue(closed, due.Add(time.Hour)) {
		t.Error("closed task is overdue")
	}
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus(sampleTasks())
	want := map[task.Status]int{
		task.StatusOpen:       1,
		task.StatusInProgress: 1,
		task.StatusInReview:   1,
		task.StatusCompleted:  1,
		task.StatusClosed:     1,
	}
	for status, count := range want {
		if counts[status] != count {
			t.Errorf("counts[%s] = %d, want %d", status, counts[status], count)
		}
	}

	empty := CountByStatus(nil)
	if len(empty) != len(task.Statuses) {
		t.Errorf("empty table counts %v, want every status present", empty)
	}
}

func TestRank(t *testing.T) {
	tasks := sampleTasks()
	tasks[2].Comments = []task.Comment{{ID: "c1", Text: "the urgent part is the timeline"}}

	ranked := Rank(tasks, "urgent", 0)
	got := make([]string, len(ranked))
	for i, result := range ranked {
		got[i] = result.ID
	}
	// Title beats description; comments are not scored and "urgently"
	// is another word.
	if !slices.Equal(got, []string{"t1", "t2"}) {
		t.Errorf("Rank = %v, want [t1 t2]", got)
	}
	if ranked[0].Title != tasks[0].Title {
		t.Errorf("ranked task = %+v", ranked[0].Task)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("title score %v not above description score %v", ranked[0].Score, ranked[1].Score)
	}
	if limited := Rank(tasks, "urgent", 1); len(limited) != 1 {
		t.Errorf("limit 1 returned %d", len(limited))
	}
	if none := Rank(tasks, "", 0); len(none) != 0 {
		t.Errorf("empty query ranked %d tasks", len(none))
	}
}
