// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"slices"
	"time"

	"github.com/bureau-foundation/taskboard/lib/schema"
)

// Task is the normalized in-memory form of a task document.
type Task struct {
	ID string `json:"id"`

	// Revision identifies the stored content this value was built
	// from. Two values with equal revisions have identical content.
	Revision string `json:"revision,omitempty"`

	Title             string    `json:"title"`
	Description       string    `json:"description"`
	AssignedTo        string    `json:"assignedTo"`
	CreatedBy         string    `json:"createdBy"`
	Status            Status    `json:"status"`
	DueAt             time.Time `json:"dueAt"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	AssignmentHistory []string  `json:"assignmentHistory"`
	Comments          []Comment `json:"comments"`
	ClosedBy          string    `json:"closedBy,omitempty"`
	ClosedAt          time.Time `json:"closedAt,omitzero"`

	// Pending is set while any server timestamp of the document is
	// unresolved. Pending tasks take no part in ordering.
	Pending bool `json:"pending,omitempty"`
}

// Comment is the normalized form of a CommentRecord.
type Comment struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	PostedAt   time.Time `json:"postedAt"`
}

// Clone returns a deep copy whose slices do not alias t's.
func (t Task) Clone() Task {
	clone := t
	clone.AssignmentHistory = slices.Clone(t.AssignmentHistory)
	clone.Comments = slices.Clone(t.Comments)
	return clone
}

// HistoryConsistent reports whether the last entry of the assignment
// history is the current assignee.
func (t Task) HistoryConsistent() bool {
	if len(t.AssignmentHistory) == 0 {
		return false
	}
	return t.AssignmentHistory[len(t.AssignmentHistory)-1] == t.AssignedTo
}

// CommentRecords converts the comment sequence back to its stored form.
func (t Task) CommentRecords() []CommentRecord {
	records := make([]CommentRecord, len(t.Comments))
	for i, comment := range t.Comments {
		postedAt := schema.TimestampOf(comment.PostedAt)
		records[i] = CommentRecord{
			ID:         comment.ID,
			AuthorID:   comment.AuthorID,
			AuthorName: comment.AuthorName,
			Text:       comment.Text,
			PostedAt:   &postedAt,
		}
	}
	return records
}

// User is the normalized form of a UserRecord.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURI string `json:"avatarUri,omitempty"`
	Approved  bool   `json:"approved"`
	Admin     bool   `json:"admin,omitempty"`
}

// Notification is the normalized form of a NotificationRecord.
type Notification struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Message         string    `json:"message"`
	TargetRecipient string    `json:"targetRecipient"`
	RelatedUserID   string    `json:"relatedUserId,omitempty"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
	Pending         bool      `json:"pending,omitempty"`
}
