// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds taskboard's CBOR configuration.
//
// CBOR is the internal format: document bodies in the SQLite store,
// the store service's socket protocol, and the conversion step that
// turns a loosely-typed store document into a typed record. JSON is
// used only for CLI output and seed files.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same logical document always produces identical bytes. The store
// relies on that property: a document's revision is a hash of its
// encoding, and two writes that leave a document unchanged leave its
// revision unchanged too.
//
// # Struct Tags
//
// Record types (tasks, users, notifications) carry `json` tags only.
// fxamacker/cbor falls back to `json` tags when `cbor` tags are absent,
// so one tag names the field in both formats. Protocol envelopes that
// never leave the socket carry `cbor` tags. Never put both tags on one
// field.
package codec
