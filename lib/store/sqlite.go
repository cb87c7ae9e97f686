// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	kind      TEXT    NOT NULL,
	id        TEXT    NOT NULL,
	position  INTEGER NOT NULL,
	revision  TEXT    NOT NULL,
	size      INTEGER NOT NULL,
	encoding  TEXT    NOT NULL,
	body      BLOB    NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS documents_by_position ON documents (kind, position);
`

// SQLiteConfig holds the parameters for opening a durable store.
type SQLiteConfig struct {
	// Path is the database file. Its parent directory must exist.
	Path string

	// Compression applies to document bodies at rest. Defaults to zstd.
	Compression Compression

	// Clock supplies commit times. Defaults to the real clock.
	Clock clock.Clock

	// Sealer, when set, encrypts document bodies at rest. Rows written
	// without one stay readable after a key is configured; sealed rows
	// cannot be loaded without it.
	Sealer *Sealer

	EchoPending bool

	Logger *slog.Logger
}

// SQLite is a Store whose commits are durable in a SQLite database.
// The committed state is also held in memory: snapshots are served
// from memory and every commit is written through to the database
// before it becomes visible.
type SQLite struct {
	engine      *engine
	pool        *sqlitepool.Pool
	compression Compression
	sealer      *Sealer
	logger      *slog.Logger
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at cfg.Path and
// loads every stored document.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	compression := cfg.Compression
	if compression == "" {
		compression = CompressionZstd
	}
	if _, err := ParseCompression(string(compression)); err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: 2,
		Logger:   logger,
		Schema:   sqliteSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}

	s := &SQLite{
		engine:      newEngine(cfg.Clock, logger, cfg.EchoPending),
		pool:        pool,
		compression: compression,
		sealer:      cfg.Sealer,
		logger:      logger,
	}
	s.engine.persist = s.persist

	loaded, err := s.load(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite store: loading documents: %w", err)
	}
	logger.Info("sqlite store opened",
		"path", cfg.Path,
		"documents", loaded,
		"compression", compression,
		"encrypted", cfg.Sealer != nil,
	)
	return s, nil
}

// Close releases the database. Open subscriptions stay open but
// receive no further snapshots.
func (s *SQLite) Close() error {
	return s.pool.Close()
}

// SetFault installs a hook consulted before every write.
func (s *SQLite) SetFault(fault FaultFunc) {
	s.engine.setFault(fault)
}

// Subscribe implements [Store].
func (s *SQLite) Subscribe(ctx context.Context, kind schema.Kind) (*Subscription, error) {
	return s.engine.subscribe(ctx, kind)
}

// Create implements [Store].
func (s *SQLite) Create(ctx context.Context, kind schema.Kind, fields Fields) (string, error) {
	return s.engine.create(ctx, kind, fields)
}

// Update implements [Store].
func (s *SQLite) Update(ctx context.Context, kind schema.Kind, id string, patch Fields) error {
	return s.engine.update(ctx, kind, id, patch)
}

func (s *SQLite) load(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	count := 0
	err = sqlitex.Execute(conn,
		`SELECT kind, id, position, revision, size, encoding, body
		   FROM documents ORDER BY kind, position, id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				kind := schema.Kind(stmt.ColumnText(0))
				id := stmt.ColumnText(1)
				stored := make([]byte, stmt.ColumnLen(6))
				stmt.ColumnBytes(6, stored)

				body, err := decodeBody(kind, id, stored, stmt.ColumnText(5), int(stmt.ColumnInt64(4)), s.sealer)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", kind, id, err)
				}
				record := storedDocument{
					id:       id,
					position: stmt.ColumnInt64(2),
					revision: stmt.ColumnText(3),
					body:     body,
				}
				if err := s.engine.load(kind, record); err != nil {
					return err
				}
				count++
				return nil
			},
		})
	return count, err
}

// persist writes one committed document. Runs under the engine lock.
func (s *SQLite) persist(ctx context.Context, kind schema.Kind, record storedDocument) (err error) {
	stored, encoding, err := encodeBody(kind, record.id, record.body, s.compression, s.sealer)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endTransaction(&err)

	return sqlitex.Execute(conn,
		`INSERT INTO documents (kind, id, position, revision, size, encoding, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (kind, id) DO UPDATE SET
			revision = excluded.revision,
			size     = excluded.size,
			encoding = excluded.encoding,
			body     = excluded.body`,
		&sqlitex.ExecOptions{
			Args: []any{string(kind), record.id, record.position, record.revision, len(record.body), encoding, stored},
		})
}
