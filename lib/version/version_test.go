// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := []string{GitCommit, GitDirty, BuildTime, Version}
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime, Version = saved[0], saved[1], saved[2], saved[3] })

	GitCommit, GitDirty, BuildTime, Version = "abc1234", "false", "2026-03-01T09:00:00Z", "1.2.0"
	if got, want := Info(), "1.2.0 (abc1234, 2026-03-01T09:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("dirty Info() = %q", got)
	}
	if full := Full(); !strings.HasPrefix(full, Info()) || !strings.Contains(full, "Go: go") {
		t.Errorf("Full() = %q", full)
	}
}
