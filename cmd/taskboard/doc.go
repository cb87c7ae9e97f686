// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Taskboard is the command-line client for the task board.
//
// It reads the same configuration file as taskboard-store (see
// lib/config) and signs in with the configured identity, or the one
// given by --user. Every command that changes the board goes through
// the lifecycle engine, so the permission and transition rules are the
// same whichever client makes the change.
//
// Command groups:
//
//	task      create, begin, submit, approve, reject, close, reassign,
//	          comment, show, list, search, dashboard, watch
//	user      list, whoami, notifications
//	seed      load users and tasks from a JSONC fixture
//	backup    create and restore age-encrypted archives
//	keygen    generate backup and store encryption keys
package main
