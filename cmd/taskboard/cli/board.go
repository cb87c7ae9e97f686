// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/config"
	"github.com/bureau-foundation/taskboard/lib/identity"
	"github.com/bureau-foundation/taskboard/lib/lifecycle"
	"github.com/bureau-foundation/taskboard/lib/notify"
	"github.com/bureau-foundation/taskboard/lib/store"
	"github.com/bureau-foundation/taskboard/lib/tasksync"
)

// ErrNoIdentity is returned by [Board.RequireActor] when neither the
// configuration nor the flags name a user.
var ErrNoIdentity = errors.New("no identity: set identity.id in the configuration or pass --user")

// BoardConnection holds the flags shared by every command that opens
// the board. Embed it in a params struct; [BindFlags] registers its
// flags through AddFlags.
type BoardConnection struct {
	ConfigPath string
	UserID     string
	UserName   string
	UserEmail  string
	Verbose    bool
}

// AddFlags registers the connection flags.
func (c *BoardConnection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&c.UserID, "user", "", "act as this user id instead of identity.id")
	flagSet.StringVar(&c.UserName, "user-name", "", "display name for the acting user")
	flagSet.StringVar(&c.UserEmail, "user-email", "", "email for the acting user")
	flagSet.BoolVarP(&c.Verbose, "verbose", "v", false, "log at the configured level instead of warnings only")
}

// Board is an open taskboard: the configured store and, for boards
// from [BoardConnection.Open], the synchronization core, notification
// emitter, and lifecycle engine running over it. Close releases
// everything.
type Board struct {
	Config *config.Config
	Logger *slog.Logger
	Clock  clock.Clock
	Store  store.Store

	Core        *tasksync.Core
	Engine      *lifecycle.Engine
	Provisioner *identity.Provisioner

	// Emitter is nil when identity.admin_recipient is not configured.
	Emitter *notify.Emitter

	// Actor is the signed-in user, provisioned on open. Zero when no
	// identity is configured; see RequireActor.
	Actor lifecycle.Actor

	cancel       context.CancelFunc
	running      sync.WaitGroup
	releaseStore func() error
	closeOnce    sync.Once
	closeErr     error
}

// OpenStore loads the configuration and opens the configured store
// without starting synchronization. Backup and restore work at this
// level.
func (c *BoardConnection) OpenStore(ctx context.Context) (*Board, error) {
	cfg, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.LogLevel()
	if !c.Verbose && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := NewCommandLogger(level, cfg.Log.Format)

	if cfg.Store.Driver == config.DriverSQLite {
		if err := cfg.EnsurePaths(); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	writeTimeout, _ := cfg.WriteTimeout()
	compression, err := store.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}
	boardClock := clock.Real()
	backing, release, err := store.Open(ctx, store.OpenConfig{
		Driver:       cfg.Store.Driver,
		Path:         cfg.Store.Path,
		Socket:       cfg.Store.Socket,
		Compression:  compression,
		KeyFile:      cfg.Store.EncryptionKeyFile,
		WriteTimeout: writeTimeout,
		EchoPending:  cfg.Store.EchoPending,
		Clock:        boardClock,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	return &Board{
		Config:       cfg,
		Logger:       logger,
		Clock:        boardClock,
		Store:        backing,
		cancel:       func() {},
		releaseStore: release,
	}, nil
}

// Open opens the store, waits until the task and user tables (and the
// notification feed, when an admin recipient is configured) have been
// loaded, and provisions the acting user if one is known.
func (c *BoardConnection) Open(ctx context.Context) (*Board, error) {
	board, err := c.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := board.start(ctx); err != nil {
		board.Close()
		return nil, err
	}
	if err := board.signIn(ctx, c.identity(board.Config)); err != nil {
		board.Close()
		return nil, err
	}
	return board, nil
}

func (c *BoardConnection) identity(cfg *config.Config) identity.Identity {
	if c.UserID != "" {
		return identity.Identity{ID: c.UserID, Name: c.UserName, Email: c.UserEmail}
	}
	signedIn := identity.Identity{
		ID:        cfg.Identity.ID,
		Name:      cfg.Identity.Name,
		Email:     cfg.Identity.Email,
		AvatarURI: cfg.Identity.AvatarURI,
	}
	if c.UserName != "" {
		signedIn.Name = c.UserName
	}
	if c.UserEmail != "" {
		signedIn.Email = c.UserEmail
	}
	return signedIn
}

func (b *Board) start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	failed := make(chan error, 2)
	runLoop := func(name string, loop func(context.Context) error) {
		b.running.Add(1)
		go func() {
			defer b.running.Done()
			if err := loop(runCtx); err != nil {
				b.Logger.Error(name+" stopped", "error", err)
				failed <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	b.Core = tasksync.New(b.Store, b.Logger)
	runLoop("synchronization", b.Core.Run)
	ready := []<-chan struct{}{b.Core.Ready()}

	var announcer identity.Announcer
	if recipient := b.Config.Identity.AdminRecipient; recipient != "" {
		emitter, err := notify.New(notify.Config{Store: b.Store, AdminRecipient: recipient, Logger: b.Logger})
		if err != nil {
			return err
		}
		b.Emitter = emitter
		announcer = emitter
		runLoop("notification feed", emitter.Run)
		ready = append(ready, emitter.Synced())
	}

	b.Provisioner = identity.NewProvisioner(identity.ProvisionerConfig{
		Store:       b.Store,
		Announcer:   announcer,
		AdminEmails: b.Config.Identity.AdminEmails,
		Logger:      b.Logger,
	})
	b.Engine = lifecycle.New(lifecycle.Config{
		Store:  b.Store,
		Tasks:  b.Core,
		Clock:  b.Clock,
		Logger: b.Logger,
	})

	timeout, _ := b.Config.WriteTimeout()
	deadline := b.Clock.After(timeout)
	for _, signal := range ready {
		select {
		case <-signal:
		case err := <-failed:
			return err
		case <-deadline:
			return fmt.Errorf("%s store did not deliver the board within %s: %w", b.Config.Store.Driver, timeout, store.ErrUnavailable)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Board) signIn(ctx context.Context, configured identity.Identity) error {
	signedIn, err := identity.NewStatic(configured).SignIn(ctx)
	if errors.Is(err, identity.ErrNoIdentity) {
		return nil
	}
	if err != nil {
		return err
	}
	user, _, err := b.Provisioner.Provision(ctx, signedIn)
	if err != nil {
		return err
	}
	b.Actor = lifecycle.Actor{ID: user.ID, Name: user.Name, Admin: user.Admin}
	if stored, ok := b.Core.State().User(user.ID); ok {
		b.Actor.Name = stored.Name
		b.Actor.Admin = stored.Admin
	}
	return nil
}

// RequireActor returns the signed-in actor, or ErrNoIdentity.
func (b *Board) RequireActor() (lifecycle.Actor, error) {
	if b.Actor.ID == "" {
		return lifecycle.Actor{}, ErrNoIdentity
	}
	return b.Actor, nil
}

// UserNames maps user ids to display names from the users table.
func (b *Board) UserNames() map[string]string {
	names := make(map[string]string)
	if b.Core == nil {
		return names
	}
	for _, user := range b.Core.Users() {
		names[user.ID] = user.Name
	}
	return names
}

// Now is the board clock's current time.
func (b *Board) Now() time.Time { return b.Clock.Now() }

// Close stops the background loops and releases the store. Safe to
// call more than once.
func (b *Board) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()
		b.running.Wait()
		b.closeErr = b.releaseStore()
	})
	return b.closeErr
}

// With opens the board, runs fn under a [CallContext], and closes the
// board.
func (c *BoardConnection) With(fn func(ctx context.Context, board *Board) error) error {
	ctx, cancel := CallContext()
	defer cancel()
	board, err := c.Open(ctx)
	if err != nil {
		return err
	}
	err = fn(ctx, board)
	return errors.Join(err, board.Close())
}

// CallContext bounds one command's store calls.
func CallContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
