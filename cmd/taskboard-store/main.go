// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/config"
	"github.com/bureau-foundation/taskboard/lib/service"
	"github.com/bureau-foundation/taskboard/lib/store"
	"github.com/bureau-foundation/taskboard/lib/version"
)

// lockFileName lives in the state directory next to the database.
const lockFileName = "store.lock"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		databasePath string
		socketPath   string
		showVersion  bool
	)

	flags := pflag.NewFlagSet("taskboard-store", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flags.StringVar(&databasePath, "database", "", "SQLite database path (overrides store.path)")
	flags.StringVar(&socketPath, "socket", "", "unix socket to serve on (overrides store.socket)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("taskboard-store %s\n", version.Info())
		return nil
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if databasePath != "" {
		cfg.Store.Path = databasePath
	}
	if socketPath != "" {
		cfg.Store.Socket = socketPath
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// newLogger builds the daemon logger from log.level and log.format.
func newLogger(cfg *config.Config, output io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(output, options)), nil
	}
	return slog.New(slog.NewJSONHandler(output, options)), nil
}

// serve holds the state lock, opens the database, and serves it on
// the configured socket until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Store.Path == "" || cfg.Store.Socket == "" {
		return errors.New("taskboard-store needs both store.path and store.socket")
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	releaseLock, err := acquireLock(filepath.Join(cfg.Paths.State, lockFileName))
	if err != nil {
		return err
	}
	defer releaseLock()

	compression, err := store.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	backing, closeStore, err := store.Open(ctx, store.OpenConfig{
		Driver:      store.DriverSQLite,
		Path:        cfg.Store.Path,
		Compression: compression,
		KeyFile:     cfg.Store.EncryptionKeyFile,
		EchoPending: cfg.Store.EchoPending,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	server := service.NewSocketServer(cfg.Store.Socket, logger)
	store.NewHandler(backing, clock.Real(), logger).Register(server)

	logger.Info("taskboard store running",
		"version", version.Info(),
		"database", cfg.Store.Path,
		"socket", cfg.Store.Socket,
		"compression", compression,
		"encrypted", cfg.Store.EncryptionKeyFile != "",
	)

	err = server.Serve(ctx)
	logger.Info("shutting down")
	return err
}
