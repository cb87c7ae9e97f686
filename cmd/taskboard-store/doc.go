// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Taskboard-store serves the entity store over a unix socket. It owns
// the SQLite database named by store.path and answers the create,
// update, and subscribe actions that store.Remote sends to
// store.socket. Every taskboard client configured with the remote
// driver shares this one process, so they all observe a single commit
// history.
//
// A lock file in the state directory keeps a second daemon from
// opening the same database.
//
// Usage:
//
//	taskboard-store [--config taskboard.yaml] [--database path] [--socket path]
package main
