// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"cmp"
	"slices"
	"time"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// Buckets is one actor's dashboard.
type Buckets struct {
	// AssignedToMe holds the actor's tasks that are not closed, by
	// ascending due date.
	AssignedToMe []task.Task `json:"assignedToMe"`

	// Overdue is the part of AssignedToMe already past due, in the
	// same order.
	Overdue []task.Task `json:"overdue"`

	// CreatedByMe holds the tasks the actor created that are not
	// closed, in table order.
	CreatedByMe []task.Task `json:"createdByMe"`

	// CompletedByMe holds the closed tasks the actor created, in table
	// order.
	CompletedByMe []task.Task `json:"completedByMe"`
}

// Dashboard derives actorID's buckets as observed at now.
func Dashboard(tasks []task.Task, actorID string, now time.Time) Buckets {
	buckets := Buckets{
		AssignedToMe:  []task.Task{},
		Overdue:       []task.Task{},
		CreatedByMe:   []task.Task{},
		CompletedByMe: []task.Task{},
	}
	if actorID == "" {
		return buckets
	}

	for _, t := range tasks {
		closed := t.Status == task.StatusClosed
		if t.AssignedTo == actorID && !closed {
			buckets.AssignedToMe = append(buckets.AssignedToMe, t)
		}
		if t.CreatedBy == actorID {
			if closed {
				buckets.CompletedByMe = append(buckets.CompletedByMe, t)
			} else {
				buckets.CreatedByMe = append(buckets.CreatedByMe, t)
			}
		}
	}

	slices.SortStableFunc(buckets.AssignedToMe, func(a, b task.Task) int {
		if byDue := a.DueAt.Compare(b.DueAt); byDue != 0 {
			return byDue
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, t := range buckets.AssignedToMe {
		if IsOverdue(t, now) {
			buckets.Overdue = append(buckets.Overdue, t)
		}
	}
	return buckets
}

// IsOverdue reports whether t is past due at now. Closed tasks are
// never overdue.
func IsOverdue(t task.Task, now time.Time) bool {
	return t.Status != task.StatusClosed && t.DueAt.Before(now)
}

// CountByStatus returns the number of tasks in each status. Every
// status is present, zero counts included.
func CountByStatus(tasks []task.Task) map[task.Status]int {
	counts := make(map[task.Status]int, len(task.Statuses))
	for _, status := range task.Statuses {
		counts[status] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
