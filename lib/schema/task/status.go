// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import "fmt"

// Status is the lifecycle state of a task. The five values and their
// spelling are part of the stored contract.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusCompleted  Status = "completed"

	// StatusClosed is terminal. Nothing transitions out of it.
	StatusClosed Status = "closed"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusOpen,
	StatusInProgress,
	StatusInReview,
	StatusCompleted,
	StatusClosed,
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusInReview, StatusCompleted, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// ParseStatus converts a user-supplied string to a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q (valid: %v)", value, Statuses)
	}
	return status, nil
}
