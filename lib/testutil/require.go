// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// Fataler is the part of testing.TB the Require helpers use.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed first.
//
//	state := testutil.RequireReceive(t, updates, time.Second, "first snapshot")
func RequireReceive[T any](t Fataler, ch <-chan T, timeout time.Duration, context ...any) T {
	t.Helper()
	var zero T
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value arrived", describe(context))
			return zero
		}
		return value
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("%s: nothing received within %v", describe(context), timeout)
		return zero
	}
}

// RequireSend delivers value on ch, failing the test if no receiver
// takes it within timeout.
func RequireSend[T any](t Fataler, ch chan<- T, value T, timeout time.Duration, context ...any) {
	t.Helper()
	select {
	case ch <- value:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("%s: send not taken within %v", describe(context), timeout)
	}
}

// RequireClosed waits for a signal channel such as a Ready() or Done()
// channel to close.
//
//	testutil.RequireClosed(t, core.Ready(), time.Second, "core ready")
func RequireClosed(t Fataler, ch <-chan struct{}, timeout time.Duration, context ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("%s: channel still open after %v", describe(context), timeout)
	}
}

// RequireNoReceive fails the test if ch yields a value within wait. A
// closed channel passes. Keep wait short: it is spent in full on
// success.
func RequireNoReceive[T any](t Fataler, ch <-chan T, wait time.Duration, context ...any) {
	t.Helper()
	select {
	case value, ok := <-ch:
		if ok {
			t.Fatalf("%s: unexpected value %+v", describe(context), value)
		}
	case <-time.After(wait): //nolint:realclock bounded negative check
	}
}

// describe turns the optional trailing arguments of the Require
// helpers into a message: nothing, a plain value, or a format string
// with its arguments.
func describe(context []any) string {
	switch {
	case len(context) == 0:
		return "testutil"
	case len(context) == 1:
		return fmt.Sprint(context[0])
	}
	if format, ok := context[0].(string); ok {
		return fmt.Sprintf(format, context[1:]...)
	}
	return fmt.Sprint(context...)
}
