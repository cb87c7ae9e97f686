// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify raises side-channel notices in the notifications
// collection. The only notice today is the registration of a new
// non-admin user, addressed to the configured admin recipient.
//
// Each notice is raised exactly once per user. The emitter keys the
// notification document by the related user, so the store itself
// refuses a second copy even across processes; within a process, an
// in-flight set collapses concurrent calls for the same user into one
// write, and [Emitter.Run] keeps a set of already-notified users so
// that repeat calls do not reach the store at all.
package notify
