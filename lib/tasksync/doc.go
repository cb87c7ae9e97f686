// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tasksync keeps the authoritative task and user tables in
// step with the store.
//
// [Core.Run] holds one subscription per collection. Every snapshot
// replaces its table wholesale: the new table is built off to the
// side and swapped in under the core's lock, so readers and watchers
// only ever see whole snapshots. Each swap produces a new immutable
// [State] with a higher generation.
//
// Store timestamps are normalized to UTC time.Time. A task whose
// server timestamps are not yet finalized (the store echoed a local
// write before committing it) is marked Pending: it keeps the last
// finalized values the previous table had for it, keeps its place in
// the snapshot, and is left out of ordering. The ordered task list is
// the finalized tasks by (createdAt, id), followed by pending tasks in
// snapshot order. Resolution is recomputed on every snapshot.
//
// Optimistic shadows let the lifecycle engine show a write before the
// store confirms it. Each task keeps a log of local writes layered over
// its authoritative record in every published State. A write that
// fails is dropped from the log and the task is rebuilt from the
// record and the writes still live. A confirmed write stays layered
// until the feed shows it or a later confirmed write, or until enough
// foreign revisions arrive to show it was overwritten. [Core.Settled] layers confirmed writes only;
// the engine validates against it, so no decision rests on a write
// that may yet fail.
package tasksync
