// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build of taskboard binaries.
//
// [GitCommit], [GitDirty], [BuildTime], and [Version] are injected
// with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/taskboard/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Development builds report "unknown" and "0.1.0-dev".
package version
