// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/taskboard/lib/store"
)

// Kind classifies a lifecycle failure.
type Kind int

const (
	// KindValidation: missing or empty required input, or an unknown
	// task id.
	KindValidation Kind = iota + 1

	// KindInvalidTransition: the task's status does not permit the
	// operation.
	KindInvalidTransition

	// KindForbidden: the actor's role does not permit the operation.
	KindForbidden

	// KindInvalidAssignee: the reassignment target is the current
	// assignee.
	KindInvalidAssignee

	// KindStoreUnavailable: the store failed or timed out. Not retried.
	KindStoreUnavailable
)

// Sentinels for errors.Is. Every *Error unwraps to exactly one.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidAssignee   = errors.New("invalid assignee")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindInvalidTransition:
		return ErrInvalidTransition
	case KindForbidden:
		return ErrForbidden
	case KindInvalidAssignee:
		return ErrInvalidAssignee
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	}
	return nil
}

// String returns the sentinel's message.
func (k Kind) String() string {
	if sentinel := k.sentinel(); sentinel != nil {
		return sentinel.Error()
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every Engine operation.
type Error struct {
	Kind   Kind
	Op     Operation
	TaskID string // empty for create

	// Message describes the failure for a human.
	Message string

	// Err is the underlying store error for KindStoreUnavailable.
	Err error
}

func (e *Error) Error() string {
	subject := string(e.Op)
	if e.TaskID != "" {
		subject += " " + e.TaskID
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", subject, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", subject, e.Kind, e.Message)
}

// Unwrap exposes the kind sentinel and, for store failures, the store
// error, so both errors.Is(err, ErrStoreUnavailable) and
// errors.Is(err, store.ErrUnavailable) hold.
func (e *Error) Unwrap() []error {
	unwrapped := []error{e.Kind.sentinel()}
	if e.Err != nil {
		unwrapped = append(unwrapped, e.Err)
	}
	return unwrapped
}

func newError(kind Kind, op Operation, taskID, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, TaskID: taskID, Message: fmt.Sprintf(format, args...)}
}

// storeError classifies a store failure. Anything the store reports is
// surfaced as unavailability except a vanished document, which the
// caller could not have known about.
func storeError(op Operation, taskID string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindValidation, Op: op, TaskID: taskID, Message: "task not found", Err: err}
	}
	return &Error{Kind: KindStoreUnavailable, Op: op, TaskID: taskID, Message: "store write failed", Err: err}
}
