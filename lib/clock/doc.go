// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used across
// taskboard.
//
// Overdue detection, comment timestamps, and the periodic view refresh
// all read time through a [Clock] so that tests can move time forward
// without waiting for it. Production code uses [Real]; tests use
// [Fake] and call [FakeClock.Advance]:
//
//	c := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
//	deriver := taskview.NewDeriver(core, session, c, time.Minute, logger)
//	// ... start the deriver ...
//	c.WaitForTickers(1)
//	c.Advance(24 * time.Hour) // tasks due yesterday are now overdue
//
// Nothing in this package stores a wall-clock reading: every caller
// asks for Now at the moment it derives a value.
package clock
