// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the select
// with a time.After fallback so individual tests never block forever.
// [RequireNoReceive] is the negative form, for asserting that a feed
// stayed quiet. These helpers are the only place tests touch the wall
// clock; everything else runs on lib/clock's fake clock.
//
// [SocketDir] returns a short /tmp directory for Unix sockets.
// [UniqueID] produces collision-free identifiers.
//
// All helpers call t.Fatalf on failure.
package testutil
