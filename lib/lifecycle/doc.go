// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle validates and applies every mutation of a task:
// creation, the status workflow, reassignment, and comments.
//
// The workflow is a fixed table keyed by operation:
//
//	begin   : open        -> in_progress  (assignee)
//	submit  : in_progress -> in_review    (assignee)
//	approve : in_review   -> completed    (creator)
//	reject  : in_review   -> in_progress  (creator)
//	close   : any but closed -> closed    (admin)
//
// Closed is absorbing: once a task is closed every operation on it,
// reassignment and comments included, fails with ErrInvalidTransition.
//
// The table ([Target]) and the role predicate ([Authorize]) are
// independent and separately testable. An operation first checks its
// input, then the task's status, then the actor's role, so a call
// against a task in the wrong status reports ErrInvalidTransition even
// when the actor would also be refused.
//
// All checks run against the settled task (the authoritative record
// plus this client's confirmed writes) and complete before any store
// call: a rejected operation has no side effects. Writes still in
// flight are not part of the settled task, so an operation issued
// while another is pending is judged without it, and a write the
// store refuses can never be carried into a later one. Writes are
// partial updates; the resulting state arrives back through the
// synchronization core's subscription. While a write is in flight the
// engine shows it as an optimistic shadow, withdrawn if the store
// refuses the write.
//
// Comment and reassignment appends rewrite the whole sequence field
// from the settled task. Two writers appending concurrently race, and
// the store keeps the last write.
package lifecycle
