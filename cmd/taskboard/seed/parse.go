// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package seed implements "taskboard seed": importing users and tasks
// from a JSONC fixture file.
//
// A fixture is plain JSON extended with // line comments, /* block
// comments */, and trailing commas:
//
//	{
//	  "users": [
//	    {"id": "ada", "name": "Ada", "email": "ada@example.com", "admin": true},
//	    {"id": "grace", "name": "Grace"},
//	  ],
//	  "tasks": [
//	    {
//	      "id": "deploy",            // optional; the store assigns one otherwise
//	      "title": "Deploy staging",
//	      "description": "Roll out **1.4**.",
//	      "createdBy": "ada",
//	      "assignedTo": "grace",
//	      "status": "in_review",     // default open
//	      "due": "-24h",             // RFC 3339, YYYY-MM-DD, or an offset from now
//	      "comments": [{"author": "grace", "text": "Ready for a look."}],
//	    },
//	  ],
//	}
//
// Tasks are written whole, in any status, without replaying the
// lifecycle: a fixture describes a board as it should look. Documents
// whose id already exists are left alone, so seeding is repeatable.
package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// File is a parsed fixture.
type File struct {
	Users []User `json:"users"`
	Tasks []Task `json:"tasks"`
}

// User is a fixture user. Admins are approved whether or not Approved
// is set.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURI string `json:"avatarUri"`
	Approved  bool   `json:"approved"`
	Admin     bool   `json:"admin"`
}

// Task is a fixture task.
type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CreatedBy   string      `json:"createdBy"`
	AssignedTo  string      `json:"assignedTo"`
	Status      task.Status `json:"status"`
	Due         string      `json:"due"`

	// AssignmentHistory defaults to [AssignedTo]. When given it must
	// end with AssignedTo.
	AssignmentHistory []string  `json:"assignmentHistory"`
	Comments          []Comment `json:"comments"`

	// ClosedBy defaults to CreatedBy for closed tasks.
	ClosedBy string `json:"closedBy"`
}

// Comment is a fixture comment. At defaults to the import time.
type Comment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	At     string `json:"at"`
}

// Document is one store write produced from a fixture.
type Document struct {
	Kind   schema.Kind
	Label  string
	Fields store.Fields
}

// ReadFile reads and parses the fixture at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Parse strips JSONC comments and trailing commas from data and
// decodes the result. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	var file File
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &file, nil
}

// Documents converts the fixture into store writes, users first. Every
// task is validated as the store would hold it; all problems are
// reported together.
func (f *File) Documents(now time.Time) ([]Document, error) {
	var documents []Document
	var errs []error

	names := make(map[string]string, len(f.Users))
	for i, user := range f.Users {
		if user.ID == "" {
			errs = append(errs, fmt.Errorf("users[%d]: id is required", i))
			continue
		}
		name := user.Name
		if name == "" {
			name = user.ID
		}
		names[user.ID] = name
		fields := store.Fields{
			"id":       user.ID,
			"name":     name,
			"approved": user.Approved || user.Admin,
		}
		if user.Email != "" {
			fields["email"] = user.Email
		}
		if user.AvatarURI != "" {
			fields["avatarUri"] = user.AvatarURI
		}
		if user.Admin {
			fields["admin"] = true
		}
		documents = append(documents, Document{Kind: schema.KindUsers, Label: "user " + user.ID, Fields: fields})
	}

	for i, fixture := range f.Tasks {
		fields, err := fixture.fields(now, names)
		if err != nil {
			errs = append(errs, fmt.Errorf("tasks[%d] %q: %w", i, fixture.Title, err))
			continue
		}
		label := "task " + fixture.Title
		if fixture.ID != "" {
			label = "task " + fixture.ID
		}
		documents = append(documents, Document{Kind: schema.KindTasks, Label: label, Fields: fields})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return documents, nil
}

func (fixture Task) fields(now time.Time, names map[string]string) (store.Fields, error) {
	status := fixture.Status
	if status == "" {
		status = task.StatusOpen
	}
	due, err := parseTime(fixture.Due, now)
	if err != nil {
		return nil, fmt.Errorf("due: %w", err)
	}
	history := fixture.AssignmentHistory
	if len(history) == 0 && fixture.AssignedTo != "" {
		history = []string{fixture.AssignedTo}
	}

	comments := make([]task.CommentRecord, 0, len(fixture.Comments))
	for i, comment := range fixture.Comments {
		postedAt := now
		if comment.At != "" {
			if postedAt, err = parseTime(comment.At, now); err != nil {
				return nil, fmt.Errorf("comments[%d].at: %w", i, err)
			}
		}
		authorName := names[comment.Author]
		if authorName == "" {
			authorName = comment.Author
		}
		timestamp := schema.TimestampOf(postedAt)
		comments = append(comments, task.CommentRecord{
			ID:         uuid.NewString(),
			AuthorID:   comment.Author,
			AuthorName: authorName,
			Text:       comment.Text,
			PostedAt:   &timestamp,
		})
	}

	dueAt := schema.TimestampOf(due)
	record := task.TaskRecord{
		Title:             fixture.Title,
		Description:       fixture.Description,
		AssignedTo:        fixture.AssignedTo,
		CreatedBy:         fixture.CreatedBy,
		Status:            status,
		DueAt:             &dueAt,
		AssignmentHistory: history,
		Comments:          comments,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	fields := store.Fields{
		task.FieldTitle:             record.Title,
		task.FieldDescription:       record.Description,
		task.FieldAssignedTo:        record.AssignedTo,
		task.FieldCreatedBy:         record.CreatedBy,
		task.FieldStatus:            record.Status,
		task.FieldDueAt:             dueAt,
		task.FieldCreatedAt:         schema.ServerTimestamp,
		task.FieldUpdatedAt:         schema.ServerTimestamp,
		task.FieldAssignmentHistory: record.AssignmentHistory,
		task.FieldComments:          record.Comments,
	}
	if fixture.ID != "" {
		fields["id"] = fixture.ID
	}
	if status == task.StatusClosed {
		closedBy := fixture.ClosedBy
		if closedBy == "" {
			closedBy = fixture.CreatedBy
		}
		fields[task.FieldClosedBy] = closedBy
		fields[task.FieldClosedAt] = schema.ServerTimestamp
	} else if fixture.ClosedBy != "" {
		return nil, fmt.Errorf("closedBy is set on a %s task", status)
	}
	return fields, nil
}

// parseTime accepts RFC 3339, a calendar date (UTC midnight), or a Go
// duration offset from now, which may be negative.
func parseTime(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("a time is required")
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.DateOnly, value); err == nil {
		return parsed, nil
	}
	if offset, err := time.ParseDuration(value); err == nil {
		return now.Add(offset), nil
	}
	return time.Time{}, fmt.Errorf("%q is not RFC 3339, YYYY-MM-DD, or a duration", value)
}
