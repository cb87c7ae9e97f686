// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task defines the taskboard record shapes: tasks with their
// embedded comments, users, and notifications.
//
// Each collection has two forms. The *Record types mirror the stored
// document exactly (field names are the contract with the store, and
// timestamps use [schema.Timestamp]). The plain types ([Task], [User],
// [Notification]) are the normalized in-memory form built by the
// synchronization core: absolute times as time.Time, the document id
// and revision attached, and a Pending flag for records whose server
// timestamps have not been finalized.
package task
