// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskview derives the read-only projections consumers render
// from the synchronized task table: the filtered list, the dashboard
// buckets, per-status counts, and relevance-ranked search results.
//
// The projection functions ([FilteredTasks], [Dashboard],
// [CountByStatus], [Rank]) are pure. They take the task table, the
// caller's [Session], and the observation time, and return fresh
// slices; they never cache. Overdue is computed from dueAt and the
// time passed in, never stored, so advancing a clock past a due date
// changes the result without any write.
//
// [Deriver] binds the functions to a live [tasksync.Core]: it
// recomputes a [Projection] whenever the table changes, the session
// changes, or the overdue refresh ticker fires, and fans each
// Projection out to watchers with the same coalescing delivery the
// synchronization core uses.
//
// A Session is per-caller state. Two Derivers over the same core
// share the table but nothing else.
package taskview
