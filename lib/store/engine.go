// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/codec"
	"github.com/bureau-foundation/taskboard/lib/schema"
)

// persistFunc durably records one committed document. It runs under the
// engine lock before the commit becomes visible; an error aborts the
// commit.
type persistFunc func(ctx context.Context, kind schema.Kind, record storedDocument) error

// storedDocument is the committed form of one document.
type storedDocument struct {
	id       string
	position int64 // creation order within the collection
	revision string
	body     []byte // deterministic CBOR of the fields
}

// collection is the committed state and subscriber list of one kind.
type collection struct {
	order       []string
	documents   map[string]storedDocument
	sequence    uint64
	subscribers []*Subscription
}

// engine is the serialized commit log shared by Memory and SQLite.
// Every create and update takes the engine lock, commits, and fans the
// resulting snapshot out to subscribers before releasing it, so
// subscribers observe commits in exactly the order they happened.
type engine struct {
	mu          sync.Mutex
	clock       clock.Clock
	logger      *slog.Logger
	collections map[schema.Kind]*collection
	echoPending bool
	fault       FaultFunc
	persist     persistFunc
	newID       func() string
}

func newEngine(clk clock.Clock, logger *slog.Logger, echoPending bool) *engine {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	collections := make(map[schema.Kind]*collection, len(schema.Kinds))
	for _, kind := range schema.Kinds {
		collections[kind] = &collection{documents: make(map[string]storedDocument)}
	}
	return &engine{
		clock:       clk,
		logger:      logger,
		collections: collections,
		echoPending: echoPending,
		newID:       uuid.NewString,
	}
}

// setFault installs or clears (nil) the fault hook.
func (e *engine) setFault(fault FaultFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fault = fault
}

// load installs a previously persisted document without publishing.
// Used by SQLite while opening, before any subscriber exists.
func (e *engine) load(kind schema.Kind, record storedDocument) error {
	target, ok := e.collections[kind]
	if !ok {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalid, kind)
	}
	if _, exists := target.documents[record.id]; !exists {
		target.order = append(target.order, record.id)
	}
	target.documents[record.id] = record
	return nil
}

func (e *engine) subscribe(ctx context.Context, kind schema.Kind) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("subscribe", err)
	}

	e.mu.Lock()
	target, ok := e.collections[kind]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("subscribe: %w: unknown collection %q", ErrInvalid, kind)
	}

	snapshot, err := e.snapshotLocked(kind, target, "", nil)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	// The initial snapshot goes out under the lock so no commit can
	// publish a newer one ahead of it.
	var subscription *Subscription
	subscription = newSubscription(kind, func() { e.unsubscribe(kind, subscription) })
	target.subscribers = append(target.subscribers, subscription)
	subscription.deliver(snapshot)
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			subscription.Close()
		case <-subscription.Done():
		}
	}()
	return subscription, nil
}

func (e *engine) unsubscribe(kind schema.Kind, subscription *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	target := e.collections[kind]
	for i, existing := range target.subscribers {
		if existing == subscription {
			target.subscribers = append(target.subscribers[:i], target.subscribers[i+1:]...)
			return
		}
	}
}

func (e *engine) create(ctx context.Context, kind schema.Kind, fields Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("create", err)
	}

	fields = maps.Clone(fields)
	id, _ := fields["id"].(string)
	delete(fields, "id")

	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.collections[kind]
	if !ok {
		return "", fmt.Errorf("create: %w: unknown collection %q", ErrInvalid, kind)
	}
	if id != "" {
		if _, exists := target.documents[id]; exists {
			return "", fmt.Errorf("create %s/%s: %w", kind, id, ErrExists)
		}
	}
	if e.fault != nil {
		if err := e.fault(Operation{Action: "create", Kind: kind, ID: id}); err != nil {
			return "", unavailable("create", err)
		}
	}
	if id == "" {
		id = e.newID()
	}

	committed := resolveSentinels(fields, e.clock, false)
	record, err := encodeDocument(id, int64(len(target.order)), committed)
	if err != nil {
		return "", fmt.Errorf("create %s: %w: %w", kind, ErrInvalid, err)
	}

	if e.echoPending {
		echo := Document{ID: id, Fields: resolveSentinels(fields, e.clock, true), Pending: true}
		e.publishLocked(kind, target, id, &echo)
	}

	if e.persist != nil {
		if err := e.persist(ctx, kind, record); err != nil {
			e.rollbackEchoLocked(kind, target)
			return "", unavailable("create", err)
		}
	}

	target.order = append(target.order, id)
	target.documents[id] = record
	e.publishLocked(kind, target, "", nil)

	e.logger.Debug("document created", "kind", kind, "id", id, "revision", record.revision)
	return id, nil
}

func (e *engine) update(ctx context.Context, kind schema.Kind, id string, patch Fields) error {
	if err := ctx.Err(); err != nil {
		return unavailable("update", err)
	}
	if id == "" {
		return fmt.Errorf("update: %w: empty document id", ErrInvalid)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.collections[kind]
	if !ok {
		return fmt.Errorf("update: %w: unknown collection %q", ErrInvalid, kind)
	}
	current, exists := target.documents[id]
	if !exists {
		return fmt.Errorf("update %s/%s: %w", kind, id, ErrNotFound)
	}
	if e.fault != nil {
		if err := e.fault(Operation{Action: "update", Kind: kind, ID: id}); err != nil {
			return unavailable("update", err)
		}
	}

	base, err := decodeFields(current.body)
	if err != nil {
		return fmt.Errorf("update %s/%s: decoding stored document: %w", kind, id, err)
	}

	merged := maps.Clone(base)
	maps.Copy(merged, resolveSentinels(patch, e.clock, false))
	record, err := encodeDocument(id, current.position, merged)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w: %w", kind, id, ErrInvalid, err)
	}

	if e.echoPending {
		echoFields := maps.Clone(base)
		for key := range patch {
			delete(echoFields, key)
		}
		maps.Copy(echoFields, resolveSentinels(patch, e.clock, true))
		echo := Document{ID: id, Revision: current.revision, Fields: echoFields, Pending: true}
		e.publishLocked(kind, target, id, &echo)
	}

	if e.persist != nil {
		if err := e.persist(ctx, kind, record); err != nil {
			e.rollbackEchoLocked(kind, target)
			return unavailable("update", err)
		}
	}

	target.documents[id] = record
	e.publishLocked(kind, target, "", nil)

	e.logger.Debug("document updated", "kind", kind, "id", id, "revision", record.revision)
	return nil
}

// rollbackEchoLocked republishes the committed state after an echoed
// write failed to commit.
func (e *engine) rollbackEchoLocked(kind schema.Kind, target *collection) {
	if e.echoPending {
		e.publishLocked(kind, target, "", nil)
	}
}

// publishLocked builds a snapshot (optionally substituting an echo for
// the document with id overrideID, or appending it when new) and
// delivers it to every subscriber. Must be called with e.mu held.
func (e *engine) publishLocked(kind schema.Kind, target *collection, overrideID string, override *Document) {
	target.sequence++
	if len(target.subscribers) == 0 {
		return
	}
	snapshot, err := e.snapshotLocked(kind, target, overrideID, override)
	if err != nil {
		// A committed body that no longer decodes is a programming
		// error; keep the feed alive with the previous snapshot.
		e.logger.Error("building snapshot failed", "kind", kind, "error", err)
		return
	}
	for _, subscriber := range target.subscribers {
		subscriber.deliver(snapshot)
	}
}

func (e *engine) snapshotLocked(kind schema.Kind, target *collection, overrideID string, override *Document) (Snapshot, error) {
	snapshot := Snapshot{
		Kind:      kind,
		Sequence:  target.sequence,
		Documents: make([]Document, 0, len(target.order)+1),
	}
	replaced := false
	for _, id := range target.order {
		if override != nil && id == overrideID {
			snapshot.Documents = append(snapshot.Documents, *override)
			replaced = true
			continue
		}
		record := target.documents[id]
		fields, err := decodeFields(record.body)
		if err != nil {
			return Snapshot{}, fmt.Errorf("decoding %s/%s: %w", kind, id, err)
		}
		snapshot.Documents = append(snapshot.Documents, Document{
			ID:       id,
			Revision: record.revision,
			Fields:   fields,
		})
	}
	if override != nil && !replaced {
		snapshot.Documents = append(snapshot.Documents, *override)
	}
	return snapshot, nil
}

// resolveSentinels returns a copy of fields with server-timestamp
// sentinels replaced by the current time, or dropped when pending is
// set (an echo reports them as not yet finalized).
func resolveSentinels(fields Fields, clk clock.Clock, pending bool) Fields {
	resolved := make(Fields, len(fields))
	now := clk.Now()
	for key, value := range fields {
		if schema.IsServerTimestamp(value) {
			if !pending {
				resolved[key] = schema.TimestampOf(now)
			}
			continue
		}
		resolved[key] = value
	}
	return resolved
}

func encodeDocument(id string, position int64, fields Fields) (storedDocument, error) {
	body, err := codec.Marshal(map[string]any(fields))
	if err != nil {
		return storedDocument{}, err
	}
	return storedDocument{
		id:       id,
		position: position,
		revision: revisionOf(body),
		body:     body,
	}, nil
}

func decodeFields(body []byte) (Fields, error) {
	var fields Fields
	if err := codec.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}

// revisionOf hashes a deterministic encoding. 16 bytes of BLAKE3 is
// plenty to tell two versions of one document apart.
func revisionOf(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:16])
}
