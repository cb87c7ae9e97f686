// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// Operation names a mutation of a task.
type Operation string

const (
	OpCreate   Operation = "create"
	OpBegin    Operation = "begin"
	OpSubmit   Operation = "submit"
	OpApprove  Operation = "approve"
	OpReject   Operation = "reject"
	OpClose    Operation = "close"
	OpReassign Operation = "reassign"
	OpComment  Operation = "comment"
)

// transition is one row of the status table. An empty from matches
// every non-closed status.
type transition struct {
	from task.Status
	to   task.Status
}

var transitions = map[Operation]transition{
	OpBegin:   {from: task.StatusOpen, to: task.StatusInProgress},
	OpSubmit:  {from: task.StatusInProgress, to: task.StatusInReview},
	OpApprove: {from: task.StatusInReview, to: task.StatusCompleted},
	OpReject:  {from: task.StatusInReview, to: task.StatusInProgress},
	OpClose:   {to: task.StatusClosed},
}

// IsTransition reports whether op changes the task's status.
func IsTransition(op Operation) bool {
	_, ok := transitions[op]
	return ok
}

// Target returns the status op moves a task in status from to, or
// ok=false when the table does not permit it. Operations that do not
// change status (reassign, comment) are permitted from every status
// except closed and return from unchanged.
func Target(op Operation, from task.Status) (task.Status, bool) {
	if from.IsTerminal() {
		return from, false
	}
	row, isTransition := transitions[op]
	if !isTransition {
		switch op {
		case OpReassign, OpComment:
			return from, true
		}
		return from, false
	}
	if row.from != "" && row.from != from {
		return from, false
	}
	return row.to, true
}
