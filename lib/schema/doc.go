// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema holds the wire primitives shared by every taskboard
// collection: collection names, the store's timestamp representation,
// and the server-timestamp sentinel.
//
// Record shapes for individual collections live in subpackages
// ([github.com/bureau-foundation/taskboard/lib/schema/task]). Field
// names in those records are the external contract with the document
// store and must not change.
//
// This package depends on no other taskboard packages.
package schema
