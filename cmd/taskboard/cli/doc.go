// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the taskboard CLI.
//
// Commands are a tree of [Command] values. Each command declares its
// flags through a params struct bound with [FlagsFromParams], so a
// command's inputs are visible in one place:
//
//	type closeParams struct {
//	    cli.BoardConnection
//	    cli.JSONOutput
//	}
//
// [BoardConnection] carries the flags every board-touching command
// shares (--config and the acting identity) and opens a [Board]: the
// configured store with the synchronization core, notification
// emitter, and lifecycle engine running over it.
//
// Command results go to [Output]. Errors implementing ExitCode() int
// end the process with that code and no extra message; see
// [ExitError].
package cli
