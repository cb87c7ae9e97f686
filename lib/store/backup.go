// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/taskboard/lib/codec"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/sealed"
	"github.com/bureau-foundation/taskboard/lib/secret"
)

// BackupFormat identifies a backup archive. An archive is an age
// envelope around a zstd stream of CBOR values: one [BackupHeader]
// followed by one [BackupRecord] per document.
const BackupFormat = "taskboard-backup/1"

// BackupHeader opens an archive.
type BackupHeader struct {
	Format    string           `cbor:"format"`
	CreatedAt schema.Timestamp `cbor:"createdAt"`
	Kinds     []schema.Kind    `cbor:"kinds"`
}

// BackupRecord is one committed document.
type BackupRecord struct {
	Kind   schema.Kind `cbor:"kind"`
	ID     string      `cbor:"id"`
	Fields Fields      `cbor:"fields"`
}

// BackupStats counts documents per collection.
type BackupStats map[schema.Kind]int

// Backup writes every committed document of the given collections
// (all collections when kinds is empty) to destination, sealed to the
// recipient age keys. Each collection is read from one snapshot, so
// the archive holds a consistent state per collection. Documents whose
// write is still pending are skipped.
func Backup(ctx context.Context, source Store, destination io.Writer, recipients []string, now time.Time, kinds ...schema.Kind) (BackupStats, error) {
	if len(kinds) == 0 {
		kinds = schema.Kinds
	}
	envelope, err := sealed.Seal(destination, recipients)
	if err != nil {
		return nil, err
	}
	compressor, err := zstd.NewWriter(envelope)
	if err != nil {
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	encoder := codec.NewEncoder(compressor)

	header := BackupHeader{Format: BackupFormat, CreatedAt: schema.TimestampOf(now), Kinds: kinds}
	if err := encoder.Encode(header); err != nil {
		return nil, fmt.Errorf("writing backup header: %w", err)
	}

	stats := BackupStats{}
	for _, kind := range kinds {
		snapshot, err := firstSnapshot(ctx, source, kind)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", kind, err)
		}
		for _, document := range snapshot.Documents {
			if document.Pending {
				continue
			}
			if err := encoder.Encode(BackupRecord{Kind: kind, ID: document.ID, Fields: document.Fields}); err != nil {
				return nil, fmt.Errorf("writing %s/%s: %w", kind, document.ID, err)
			}
			stats[kind]++
		}
	}

	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("finishing zstd stream: %w", err)
	}
	if err := envelope.Close(); err != nil {
		return nil, fmt.Errorf("finishing age envelope: %w", err)
	}
	return stats, nil
}

// Restore reads an archive written by [Backup] and creates each
// document in target under its original id, in archive order, so
// creation order survives. A document whose id already exists in
// target is left alone and counted in skipped.
func Restore(ctx context.Context, target Store, source io.Reader, identity *secret.Buffer) (restored, skipped BackupStats, err error) {
	plaintext, err := sealed.Open(source, identity)
	if err != nil {
		return nil, nil, err
	}
	decompressor, err := zstd.NewReader(plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("reading zstd stream: %w", err)
	}
	defer decompressor.Close()
	decoder := codec.NewDecoder(decompressor)

	var header BackupHeader
	if err := decoder.Decode(&header); err != nil {
		return nil, nil, fmt.Errorf("reading backup header: %w", err)
	}
	if header.Format != BackupFormat {
		return nil, nil, fmt.Errorf("unsupported backup format %q", header.Format)
	}

	restored, skipped = BackupStats{}, BackupStats{}
	for {
		var record BackupRecord
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return restored, skipped, nil
			}
			return restored, skipped, fmt.Errorf("reading backup record: %w", err)
		}
		if !record.Kind.Valid() || record.ID == "" {
			return restored, skipped, fmt.Errorf("%w: backup record %s/%q", ErrInvalid, record.Kind, record.ID)
		}
		fields := make(Fields, len(record.Fields)+1)
		for key, value := range record.Fields {
			fields[key] = value
		}
		fields["id"] = record.ID
		_, err := target.Create(ctx, record.Kind, fields)
		switch {
		case errors.Is(err, ErrExists):
			skipped[record.Kind]++
		case err != nil:
			return restored, skipped, fmt.Errorf("restoring %s/%s: %w", record.Kind, record.ID, err)
		default:
			restored[record.Kind]++
		}
	}
}

func firstSnapshot(ctx context.Context, source Store, kind schema.Kind) (Snapshot, error) {
	subscription, err := source.Subscribe(ctx, kind)
	if err != nil {
		return Snapshot{}, err
	}
	defer subscription.Close()

	select {
	case snapshot, ok := <-subscription.C():
		if !ok {
			if err := subscription.Err(); err != nil {
				return Snapshot{}, err
			}
			return Snapshot{}, unavailable("subscribe "+string(kind), errors.New("feed closed before first snapshot"))
		}
		return snapshot, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}
