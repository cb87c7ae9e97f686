// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material outside the Go heap.
//
// A [Buffer] is an anonymous mmap region, locked against swap with
// mlock and excluded from core dumps with MADV_DONTDUMP. Close zeroes
// and unmaps it; any later read panics. The store's at-rest encryption
// key and the age identities used to restore backups live in Buffers
// from the moment they are read ([ReadFromPath], [ReadHexKey]) until
// the process is done with them.
package secret
