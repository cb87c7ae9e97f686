// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasksync

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/bureau-foundation/taskboard/lib/codec"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// decodeTask converts one task document. previous is the task's entry
// in the table being replaced, used to carry finalized timestamps
// across a pending echo.
func decodeTask(document store.Document, previous *task.Task) (task.Task, error) {
	var record task.TaskRecord
	if err := codec.Convert(document.Fields, &record); err != nil {
		return task.Task{}, fmt.Errorf("task %s: %w", document.ID, err)
	}
	if err := record.Validate(); err != nil {
		return task.Task{}, fmt.Errorf("task %s: %w", document.ID, err)
	}

	normalized := task.Task{
		ID:                document.ID,
		Revision:          document.Revision,
		Title:             record.Title,
		Description:       record.Description,
		AssignedTo:        record.AssignedTo,
		CreatedBy:         record.CreatedBy,
		Status:            record.Status,
		DueAt:             record.DueAt.Time(),
		AssignmentHistory: record.AssignmentHistory,
		ClosedBy:          record.ClosedBy,
		ClosedAt:          timeOf(record.ClosedAt),
		Comments:          make([]task.Comment, len(record.Comments)),
	}
	for i, comment := range record.Comments {
		normalized.Comments[i] = task.Comment{
			ID:         comment.ID,
			AuthorID:   comment.AuthorID,
			AuthorName: comment.AuthorName,
			Text:       comment.Text,
			PostedAt:   comment.PostedAt.Time(),
		}
	}

	normalized.CreatedAt = timeOf(record.CreatedAt)
	normalized.UpdatedAt = timeOf(record.UpdatedAt)
	if record.CreatedAt == nil || record.UpdatedAt == nil {
		normalized.Pending = true
		if previous != nil {
			if record.CreatedAt == nil {
				normalized.CreatedAt = previous.CreatedAt
			}
			if record.UpdatedAt == nil {
				normalized.UpdatedAt = previous.UpdatedAt
			}
		}
	}
	if record.Status == task.StatusClosed && record.ClosedBy != "" && record.ClosedAt == nil {
		normalized.Pending = true
		if previous != nil {
			normalized.ClosedAt = previous.ClosedAt
		}
	}
	return normalized, nil
}

func timeOf(timestamp *schema.Timestamp) time.Time {
	if timestamp == nil {
		return time.Time{}
	}
	return timestamp.Time()
}

func decodeUser(document store.Document) (task.User, error) {
	var record task.UserRecord
	if err := codec.Convert(document.Fields, &record); err != nil {
		return task.User{}, fmt.Errorf("user %s: %w", document.ID, err)
	}
	return task.User{
		ID:        document.ID,
		Name:      record.Name,
		Email:     record.Email,
		AvatarURI: record.AvatarURI,
		Approved:  record.Approved,
		Admin:     record.Admin,
	}, nil
}

// orderTasks sorts finalized tasks by (createdAt, id) and appends the
// pending ones in their original relative order.
func orderTasks(tasks []task.Task) []task.Task {
	ordered := make([]task.Task, 0, len(tasks))
	var pending []task.Task
	for _, t := range tasks {
		if t.Pending {
			pending = append(pending, t)
		} else {
			ordered = append(ordered, t)
		}
	}
	slices.SortStableFunc(ordered, func(a, b task.Task) int {
		if byTime := a.CreatedAt.Compare(b.CreatedAt); byTime != 0 {
			return byTime
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return append(ordered, pending...)
}
