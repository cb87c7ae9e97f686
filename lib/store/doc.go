// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the entity store adapter: the only path between
// taskboard and the document store that persists tasks, users, and
// notifications.
//
// The adapter exposes two halves of the same contract:
//
//   - a push feed, [Store.Subscribe], that delivers full snapshots of
//     one collection (every document, in creation order) whenever the
//     collection changes;
//   - request/response writes, [Store.Create] and [Store.Update], that
//     are acknowledged once committed. Writes are never applied to any
//     local table directly: their effect comes back through the feed.
//
// Updates are shallow merges. Each top-level field in the patch
// replaces the stored field wholesale, which is why appending to a
// sequence field (comments, assignment history) is a read-modify-write
// from the caller's snapshot and two racing appends can lose one.
//
// # Implementations
//
//   - [Memory]: in-process, serialized commits under one lock. Used by
//     tests and by the CLI's ephemeral mode. Can echo writes before
//     commit to exercise pending server timestamps, and accepts an
//     injected fault hook.
//   - [SQLite]: the same commit engine, persisting each committed
//     document to SQLite (via lib/sqlitepool) as CBOR, zstd or lz4
//     compressed.
//   - [Remote]: a client of the store service (cmd/taskboard-store)
//     over its unix socket. [Handler] is the server side.
//
// # Errors
//
// Every failure of the collaborator itself (transport, timeout,
// injected fault, persistence) wraps [ErrUnavailable]. Callers surface
// it as a failed operation and do not retry.
//
// # Subscriptions
//
// A [Subscription] delivers its first snapshot immediately. Delivery is
// coalescing: a subscriber that has not read the previous snapshot
// finds only the newest one. Because each snapshot is complete, a
// skipped snapshot loses nothing.
package store
