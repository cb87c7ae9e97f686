// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/taskboard/lib/schema"
)

// Field names of the task document. Writers build partial updates
// keyed by these names; a typo here would silently create a new field
// in the store, so every writer goes through the constants.
const (
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldAssignedTo        = "assignedTo"
	FieldCreatedBy         = "createdBy"
	FieldStatus            = "status"
	FieldDueAt             = "dueAt"
	FieldCreatedAt         = "createdAt"
	FieldUpdatedAt         = "updatedAt"
	FieldAssignmentHistory = "assignmentHistory"
	FieldComments          = "comments"
	FieldClosedBy          = "closedBy"
	FieldClosedAt          = "closedAt"
)

// TaskRecord is the stored form of a task document.
//
// AssignmentHistory and Comments are append-only sequences, but the
// store only knows whole-field replacement: every append rewrites the
// full sequence from the writer's latest snapshot. Two writers racing
// on the same task can therefore lose one append (last write wins).
type TaskRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	// AssignedTo is the current assignee. Always equal to the last
	// element of AssignmentHistory.
	AssignedTo string `json:"assignedTo"`

	// CreatedBy never changes after creation.
	CreatedBy string `json:"createdBy"`

	Status Status `json:"status"`

	// DueAt is set by the creator and never rescheduled.
	DueAt *schema.Timestamp `json:"dueAt"`

	// CreatedAt and UpdatedAt are assigned by the store. Nil means not
	// yet finalized.
	CreatedAt *schema.Timestamp `json:"createdAt,omitempty"`
	UpdatedAt *schema.Timestamp `json:"updatedAt,omitempty"`

	// AssignmentHistory starts with the original assignee; each
	// reassignment appends the new assignee.
	AssignmentHistory []string `json:"assignmentHistory"`

	Comments []CommentRecord `json:"comments"`

	// ClosedBy and ClosedAt are set by the administrative close.
	ClosedBy string            `json:"closedBy,omitempty"`
	ClosedAt *schema.Timestamp `json:"closedAt,omitempty"`
}

// Validate checks the fields every stored task must carry. Server
// timestamps may be missing (pending); everything else may not.
func (r *TaskRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("task record: title is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("task record: description is required")
	}
	if r.AssignedTo == "" {
		return errors.New("task record: assignedTo is required")
	}
	if r.CreatedBy == "" {
		return errors.New("task record: createdBy is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("task record: unknown status %q", r.Status)
	}
	if r.DueAt == nil {
		return errors.New("task record: dueAt is required")
	}
	if len(r.AssignmentHistory) == 0 {
		return errors.New("task record: assignmentHistory is empty")
	}
	if last := r.AssignmentHistory[len(r.AssignmentHistory)-1]; last != r.AssignedTo {
		return fmt.Errorf("task record: assignmentHistory ends with %q but assignedTo is %q", last, r.AssignedTo)
	}
	for i := range r.Comments {
		if err := r.Comments[i].Validate(); err != nil {
			return fmt.Errorf("task record: comments[%d]: %w", i, err)
		}
	}
	return nil
}

// CommentRecord is one entry in a task's comment sequence. AuthorName
// is copied at write time and never re-resolved, so a renamed user's
// old comments keep the old name.
type CommentRecord struct {
	ID         string            `json:"id"`
	AuthorID   string            `json:"authorId"`
	AuthorName string            `json:"authorName"`
	Text       string            `json:"text"`
	PostedAt   *schema.Timestamp `json:"postedAt"`
}

// Validate checks that all required fields are present.
func (c *CommentRecord) Validate() error {
	if c.ID == "" {
		return errors.New("comment: id is required")
	}
	if c.AuthorID == "" {
		return errors.New("comment: authorId is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("comment: text is required")
	}
	if c.PostedAt == nil {
		return errors.New("comment: postedAt is required")
	}
	return nil
}

// UserRecord is the stored form of a user. The document id is the
// identity provider's user id.
type UserRecord struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURI string `json:"avatarUri,omitempty"`

	// Approved gates participation. Enforcement belongs to the
	// consumers; this core only filters on it.
	Approved bool `json:"approved"`

	// Admin marks privileged users. Registration of a non-admin user
	// raises a notice for the admin recipient.
	Admin bool `json:"admin,omitempty"`
}

// NotificationRecord is the stored form of a side-channel notice.
type NotificationRecord struct {
	Kind            string            `json:"kind"`
	Message         string            `json:"message"`
	TargetRecipient string            `json:"targetRecipient"`
	RelatedUserID   string            `json:"relatedUserId,omitempty"`
	Read            bool              `json:"read"`
	CreatedAt       *schema.Timestamp `json:"createdAt,omitempty"`
}

// NotificationKindUserRegistration is raised once per newly registered
// non-admin user.
const NotificationKindUserRegistration = "user_registration"
