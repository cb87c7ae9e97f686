// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"fmt"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// Actor is the user performing an operation.
type Actor struct {
	ID   string
	Name string

	// Admin grants the administrative close.
	Admin bool
}

// Role is a relationship between an actor and a task.
type Role string

const (
	RoleAssignee    Role = "assignee"
	RoleCreator     Role = "creator"
	RoleParticipant Role = "participant" // assignee or creator
	RoleAdmin       Role = "admin"
	RoleAny         Role = "any"
)

var requiredRoles = map[Operation]Role{
	OpBegin:    RoleAssignee,
	OpSubmit:   RoleAssignee,
	OpApprove:  RoleCreator,
	OpReject:   RoleCreator,
	OpClose:    RoleAdmin,
	OpReassign: RoleParticipant,
	OpComment:  RoleAny,
}

// RequiredRole returns the role op demands.
func RequiredRole(op Operation) Role {
	return requiredRoles[op]
}

// HasRole reports whether actor holds role on t.
func HasRole(actor Actor, t task.Task, role Role) bool {
	switch role {
	case RoleAssignee:
		return actor.ID == t.AssignedTo
	case RoleCreator:
		return actor.ID == t.CreatedBy
	case RoleParticipant:
		return actor.ID == t.AssignedTo || actor.ID == t.CreatedBy
	case RoleAdmin:
		return actor.Admin
	case RoleAny:
		return actor.ID != ""
	}
	return false
}

// Authorize returns nil when actor may perform op on t, and a
// KindForbidden *Error otherwise. It looks only at roles; status
// eligibility is [Target]'s concern.
func Authorize(actor Actor, t task.Task, op Operation) error {
	role, known := requiredRoles[op]
	if !known {
		return newError(KindForbidden, op, t.ID, "operation has no authorization rule")
	}
	if HasRole(actor, t, role) {
		return nil
	}
	return &Error{
		Kind:    KindForbidden,
		Op:      op,
		TaskID:  t.ID,
		Message: fmt.Sprintf("%s requires the %s role; %s is not", op, role, describeActor(actor)),
	}
}

func describeActor(actor Actor) string {
	if actor.ID == "" {
		return "an anonymous actor"
	}
	return actor.ID
}
