// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// Tasks is the engine's view of the synchronized task table.
// *tasksync.Core satisfies it.
type Tasks interface {
	// Settled returns the task as the store is known to hold it:
	// never including a write that is still in flight.
	Settled(id string) (task.Task, bool)

	// Shadow shows apply's effect on task id until the store does.
	// settle(false) withdraws it.
	Shadow(id string, apply func(*task.Task)) (settle func(ok bool))
}

// Config holds the engine's collaborators. Store and Tasks are required.
type Config struct {
	Store store.Store
	Tasks Tasks

	// Clock stamps comments. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	// NewID generates comment ids. Defaults to uuid.NewString.
	NewID func() string
}

// Engine applies lifecycle operations. It holds no task state of its
// own and is safe for concurrent use.
type Engine struct {
	store  store.Store
	tasks  Tasks
	clock  clock.Clock
	logger *slog.Logger
	newID  func() string
}

// New returns an engine over cfg's collaborators.
func New(cfg Config) *Engine {
	if cfg.Store == nil || cfg.Tasks == nil {
		panic("lifecycle.New: Store and Tasks are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Engine{
		store:  cfg.Store,
		tasks:  cfg.Tasks,
		clock:  cfg.Clock,
		logger: cfg.Logger,
		newID:  cfg.NewID,
	}
}

// Draft is the caller-supplied content of a new task.
type Draft struct {
	Title       string
	Description string
	AssignedTo  string
	DueAt       time.Time
}

// Create writes a new open task and returns its id. Title and
// description are stored as given; they must not be blank.
func (e *Engine) Create(ctx context.Context, draft Draft, createdBy string) (string, error) {
	switch {
	case strings.TrimSpace(draft.Title) == "":
		return "", newError(KindValidation, OpCreate, "", "title is required")
	case strings.TrimSpace(draft.Description) == "":
		return "", newError(KindValidation, OpCreate, "", "description is required")
	case draft.AssignedTo == "":
		return "", newError(KindValidation, OpCreate, "", "assignee is required")
	case createdBy == "":
		return "", newError(KindValidation, OpCreate, "", "creator is required")
	case draft.DueAt.IsZero():
		return "", newError(KindValidation, OpCreate, "", "due date is required")
	}

	id, err := e.store.Create(ctx, schema.KindTasks, store.Fields{
		task.FieldTitle:             draft.Title,
		task.FieldDescription:       draft.Description,
		task.FieldAssignedTo:        draft.AssignedTo,
		task.FieldCreatedBy:         createdBy,
		task.FieldStatus:            task.StatusOpen,
		task.FieldDueAt:             schema.TimestampOf(draft.DueAt),
		task.FieldCreatedAt:         schema.ServerTimestamp,
		task.FieldUpdatedAt:         schema.ServerTimestamp,
		task.FieldAssignmentHistory: []string{draft.AssignedTo},
		task.FieldComments:          []task.CommentRecord{},
	})
	if err != nil {
		return "", storeError(OpCreate, "", err)
	}

	e.logger.Info("task created", "task", id, "created_by", createdBy, "assigned_to", draft.AssignedTo)
	return id, nil
}

// BeginWork moves an open task to in_progress. Assignee only.
func (e *Engine) BeginWork(ctx context.Context, taskID string, actor Actor) error {
	return e.transition(ctx, OpBegin, taskID, actor)
}

// SubmitForReview moves an in_progress task to in_review. Assignee only.
func (e *Engine) SubmitForReview(ctx context.Context, taskID string, actor Actor) error {
	return e.transition(ctx, OpSubmit, taskID, actor)
}

// Approve completes an in_review task. Creator only.
func (e *Engine) Approve(ctx context.Context, taskID string, actor Actor) error {
	return e.transition(ctx, OpApprove, taskID, actor)
}

// Reject returns an in_review task to in_progress. Creator only.
func (e *Engine) Reject(ctx context.Context, taskID string, actor Actor) error {
	return e.transition(ctx, OpReject, taskID, actor)
}

// Close is the administrative close. Admin only; any status but closed.
func (e *Engine) Close(ctx context.Context, taskID string, actor Actor) error {
	return e.transition(ctx, OpClose, taskID, actor)
}

func (e *Engine) transition(ctx context.Context, op Operation, taskID string, actor Actor) error {
	current, err := e.check(op, taskID, actor)
	if err != nil {
		return err
	}
	target, _ := Target(op, current.Status)

	patch := store.Fields{
		task.FieldStatus:    target,
		task.FieldUpdatedAt: schema.ServerTimestamp,
	}
	apply := func(t *task.Task) { t.Status = target }
	if op == OpClose {
		patch[task.FieldClosedBy] = actor.ID
		patch[task.FieldClosedAt] = schema.ServerTimestamp
		apply = func(t *task.Task) {
			t.Status = target
			t.ClosedBy = actor.ID
		}
	}

	if err := e.write(ctx, op, taskID, apply, patch); err != nil {
		return err
	}
	e.logger.Info("task transitioned",
		"task", taskID,
		"operation", op,
		"from", current.Status,
		"to", target,
		"actor", actor.ID,
	)
	return nil
}

// Reassign hands the task to newAssignee and appends it to the
// assignment history. Creator or current assignee only.
func (e *Engine) Reassign(ctx context.Context, taskID string, actor Actor, newAssignee string) error {
	if newAssignee == "" {
		return newError(KindValidation, OpReassign, taskID, "new assignee is required")
	}
	current, err := e.check(OpReassign, taskID, actor)
	if err != nil {
		return err
	}
	if newAssignee == current.AssignedTo {
		return newError(KindInvalidAssignee, OpReassign, taskID, "task is already assigned to %s", newAssignee)
	}

	history := append(slices.Clone(current.AssignmentHistory), newAssignee)
	apply := func(t *task.Task) {
		t.AssignedTo = newAssignee
		t.AssignmentHistory = slices.Clone(history)
	}

	err = e.write(ctx, OpReassign, taskID, apply, store.Fields{
		task.FieldAssignedTo:        newAssignee,
		task.FieldAssignmentHistory: history,
		task.FieldUpdatedAt:         schema.ServerTimestamp,
	})
	if err != nil {
		return err
	}
	e.logger.Info("task reassigned", "task", taskID, "from", current.AssignedTo, "to", newAssignee, "actor", actor.ID)
	return nil
}

// AddComment appends a comment to the task's settled comment
// sequence and writes the whole sequence back. Returns the comment id.
func (e *Engine) AddComment(ctx context.Context, taskID string, actor Actor, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", newError(KindValidation, OpComment, taskID, "comment text is empty")
	}
	current, err := e.check(OpComment, taskID, actor)
	if err != nil {
		return "", err
	}

	comment := task.Comment{
		ID:         e.newID(),
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Text:       text,
		PostedAt:   e.clock.Now().UTC(),
	}
	next := current.Clone()
	next.Comments = append(next.Comments, comment)
	apply := func(t *task.Task) {
		if !slices.ContainsFunc(t.Comments, func(c task.Comment) bool { return c.ID == comment.ID }) {
			t.Comments = append(t.Comments, comment)
		}
	}

	err = e.write(ctx, OpComment, taskID, apply, store.Fields{
		task.FieldComments:  next.CommentRecords(),
		task.FieldUpdatedAt: schema.ServerTimestamp,
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("comment added", "task", taskID, "comment", comment.ID, "actor", actor.ID)
	return comment.ID, nil
}

// check resolves the settled task and applies the status table and
// then the role predicate. Writes still in flight do not count: a
// decision never rests on a write that may yet fail.
func (e *Engine) check(op Operation, taskID string, actor Actor) (task.Task, error) {
	if taskID == "" {
		return task.Task{}, newError(KindValidation, op, taskID, "task id is required")
	}
	if actor.ID == "" {
		return task.Task{}, newError(KindValidation, op, taskID, "actor is required")
	}
	current, found := e.tasks.Settled(taskID)
	if !found {
		return task.Task{}, newError(KindValidation, op, taskID, "task not found")
	}
	if _, permitted := Target(op, current.Status); !permitted {
		return task.Task{}, newError(KindInvalidTransition, op, taskID, "%s is not permitted from status %s", op, current.Status)
	}
	if err := Authorize(actor, current, op); err != nil {
		return task.Task{}, err
	}
	return current, nil
}

// write shows apply as a shadow, issues the update, and withdraws the
// shadow if the store refuses it.
func (e *Engine) write(ctx context.Context, op Operation, taskID string, apply func(*task.Task), patch store.Fields) error {
	settle := e.tasks.Shadow(taskID, apply)
	if err := e.store.Update(ctx, schema.KindTasks, taskID, patch); err != nil {
		settle(false)
		e.logger.Warn("task write failed", "task", taskID, "operation", op, "error", err)
		return storeError(op, taskID, err)
	}
	settle(true)
	return nil
}
