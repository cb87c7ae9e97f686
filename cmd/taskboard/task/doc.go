// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task implements the "taskboard task" command group: creating
// tasks, driving them through the review workflow, commenting, and the
// read-side views (list, search, dashboard, show, watch).
//
// Every command opens the board through [cli.BoardConnection], so the
// acting user is the configured identity unless --user overrides it.
// Mutations go through the lifecycle engine and report the failure
// kind (validation, invalid transition, forbidden, invalid assignee,
// store unavailable) in the error text.
package task
