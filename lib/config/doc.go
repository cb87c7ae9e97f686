// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration shared by the taskboard
// CLI and the store daemon.
//
// Configuration comes from a single file named by either the
// TASKBOARD_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no search path and no per-field
// environment override: the file is the whole configuration.
//
// The file may carry development and production sections that override
// base values when [Config].Environment matches. Production without an
// explicit section switches logs to JSON.
//
// After loading, ${HOME}, ${TASKBOARD_ROOT}, and ${VAR:-default}
// patterns are expanded in path fields.
package config
