// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bm25 ranks short documents against free-text queries with
// Okapi BM25. Documents are lists of weighted fields; a field's weight
// is the number of times its tokens are repeated in the document the
// scorer sees, which is enough per-field control for task-board sized
// corpora.
//
// An [Index] is immutable once built and safe for concurrent readers.
// Callers holding a table that changes build a new Index per query.
package bm25
