// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskui is the terminal board for watching tasks. It is a
// bubbletea program fed by a [taskview.Deriver]: every projection the
// deriver publishes replaces the model's data, and the model keeps
// the cursor on the same task across updates.
//
// The board has two tabs. The board tab lists the session's filtered
// tasks, narrowed further by an fzf-style filter typed after "/". The
// dashboard tab lists the actor's buckets (overdue, assigned, created,
// completed). The right-hand pane renders the selected task with its
// description and comments as terminal markdown.
//
// Data flow:
//
//	[tasksync.Core] -> [taskview.Deriver] -> Watch()
//	                         ^                 |
//	                 SetSession (status s)  [Model]
//	                                           |
//	                                   [terminal output]
package taskui
