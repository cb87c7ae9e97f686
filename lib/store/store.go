// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/taskboard/lib/schema"
)

// Store is the entity store adapter consumed by the synchronization
// core, the lifecycle engine, and the notification emitter.
type Store interface {
	// Subscribe opens a live feed of full snapshots of kind. The feed
	// runs until the subscription is closed or ctx is cancelled.
	Subscribe(ctx context.Context, kind schema.Kind) (*Subscription, error)

	// Create writes a new document and returns its id. A string "id"
	// field in fields, when present, becomes the document id instead
	// of a generated one and is not stored as a field.
	Create(ctx context.Context, kind schema.Kind, fields Fields) (string, error)

	// Update merges patch into the document: each top-level field in
	// patch replaces the stored field.
	Update(ctx context.Context, kind schema.Kind, id string, patch Fields) error
}

// Fields is a document body or a partial update. Values are plain
// CBOR-encodable data; [schema.ServerTimestamp] marks a field the
// store fills with its commit time.
type Fields map[string]any

// Document is one member of a snapshot.
type Document struct {
	ID string `cbor:"id"`

	// Revision is a content hash of the committed body. A pending echo
	// carries the revision of the body it was derived from.
	Revision string `cbor:"revision"`

	Fields Fields `cbor:"fields"`

	// Pending marks a write the store has echoed but not committed.
	// Server timestamps set by that write are absent.
	Pending bool `cbor:"pending,omitempty"`
}

// Snapshot is the complete content of one collection at a point in
// the store's commit history.
type Snapshot struct {
	Kind schema.Kind `cbor:"kind"`

	// Sequence increases with every commit (and every echo) to the
	// collection. Snapshots of one collection are delivered in
	// Sequence order.
	Sequence uint64 `cbor:"sequence"`

	Documents []Document `cbor:"documents"`
}

var (
	// ErrUnavailable reports that the store failed or timed out.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound reports an update to a document that does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrExists reports a create with an explicit id that is taken.
	ErrExists = errors.New("document already exists")

	// ErrInvalid reports a malformed request (unknown collection,
	// empty id, unencodable fields).
	ErrInvalid = errors.New("invalid store request")
)

// unavailable wraps cause so that errors.Is(err, ErrUnavailable) holds
// while keeping the cause's message.
func unavailable(operation string, cause error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrUnavailable, cause)
}

// Operation describes a write for fault injection.
type Operation struct {
	Action string // "create" or "update"
	Kind   schema.Kind
	ID     string // empty for creates without an explicit id
}

// FaultFunc decides whether a write fails. A non-nil return aborts the
// write before anything is committed; the caller sees it wrapped in
// ErrUnavailable.
type FaultFunc func(Operation) error
