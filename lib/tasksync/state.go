// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasksync

import (
	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// State is one immutable view of both tables. Do not modify the
// slices it returns.
type State struct {
	// Generation increases by one with every published State.
	Generation uint64

	tasks      []task.Task
	taskIndex  map[string]int
	shadowed   map[string]bool
	users      []task.User
	userIndex  map[string]int
	tasksReady bool
	usersReady bool
}

// Tasks returns the ordered task table.
func (s *State) Tasks() []task.Task { return s.tasks }

// Task looks up one task by id.
func (s *State) Task(id string) (task.Task, bool) {
	index, found := s.taskIndex[id]
	if !found {
		return task.Task{}, false
	}
	return s.tasks[index], true
}

// Optimistic reports whether the task with id is an unconfirmed local
// shadow.
func (s *State) Optimistic(id string) bool { return s.shadowed[id] }

// Users returns the user table in snapshot order.
func (s *State) Users() []task.User { return s.users }

// User looks up one user by id.
func (s *State) User(id string) (task.User, bool) {
	index, found := s.userIndex[id]
	if !found {
		return task.User{}, false
	}
	return s.users[index], true
}

// Ready reports whether both tables have received their first
// snapshot.
func (s *State) Ready() bool { return s.tasksReady && s.usersReady }

func emptyState() *State {
	return &State{
		taskIndex: map[string]int{},
		shadowed:  map[string]bool{},
		userIndex: map[string]int{},
	}
}
