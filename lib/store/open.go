// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/secret"
)

// Drivers accepted by [Open].
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRemote = "remote"
)

// OpenConfig selects and configures a Store implementation.
type OpenConfig struct {
	Driver string

	// Path is the SQLite database (sqlite driver).
	Path string

	// Socket is the daemon socket (remote driver).
	Socket string

	Compression Compression

	// KeyFile holds a hex-encoded [KeySize]-byte key enabling at-rest
	// encryption (sqlite driver).
	KeyFile string

	WriteTimeout time.Duration
	EchoPending  bool
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Open returns the configured store and a function releasing it.
func Open(ctx context.Context, cfg OpenConfig) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(MemoryOptions{Clock: cfg.Clock, EchoPending: cfg.EchoPending, Logger: cfg.Logger}), noop, nil

	case DriverRemote:
		return NewRemote(cfg.Socket, RemoteOptions{WriteTimeout: cfg.WriteTimeout, Logger: cfg.Logger}), noop, nil

	case DriverSQLite:
		var sealer *Sealer
		if cfg.KeyFile != "" {
			key, err := secret.ReadHexKey(cfg.KeyFile, KeySize)
			if err != nil {
				return nil, nil, fmt.Errorf("reading store encryption key: %w", err)
			}
			sealer, err = NewSealer(key)
			if err != nil {
				key.Close()
				return nil, nil, err
			}
		}
		durable, err := OpenSQLite(ctx, SQLiteConfig{
			Path:        cfg.Path,
			Compression: cfg.Compression,
			Clock:       cfg.Clock,
			Sealer:      sealer,
			EchoPending: cfg.EchoPending,
			Logger:      cfg.Logger,
		})
		if err != nil {
			if sealer != nil {
				sealer.Close()
			}
			return nil, nil, err
		}
		release := func() error {
			err := durable.Close()
			if sealer != nil {
				sealer.Close()
			}
			return err
		}
		return durable, release, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown store driver %q", ErrInvalid, cfg.Driver)
}
