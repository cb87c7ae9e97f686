// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/taskboard/lib/config"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/store"
	"github.com/bureau-foundation/taskboard/lib/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Root = testutil.SocketDir(t)
	cfg.Resolve()
	return cfg
}

// startDaemon runs serve in the background and waits for its socket.
func startDaemon(t *testing.T, cfg *config.Config) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, nil)
	}()

	for {
		if _, err := os.Stat(cfg.Store.Socket); err == nil {
			break
		}
		select {
		case err := <-done:
			t.Fatalf("serve returned before listening: %v", err)
		default:
		}
		runtime.Gosched()
	}

	var once bool
	stop = func() {
		if once {
			return
		}
		once = true
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "daemon did not stop"); err != nil {
			t.Errorf("serve returned %v", err)
		}
	}
	t.Cleanup(stop)
	return stop
}

func firstSnapshot(t *testing.T, remote *store.Remote, kind schema.Kind) store.Snapshot {
	t.Helper()
	subscription, err := remote.Subscribe(context.Background(), kind)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subscription.Close()
	return testutil.RequireReceive(t, subscription.C(), 5*time.Second, "waiting for snapshot")
}

func TestServePersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	stop := startDaemon(t, cfg)

	remote := store.NewRemote(cfg.Store.Socket, store.RemoteOptions{WriteTimeout: 2 * time.Second})
	id, err := remote.Create(context.Background(), schema.KindUsers, store.Fields{"id": "u1", "name": "Ada"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "u1" {
		t.Errorf("Create returned id %q, want u1", id)
	}
	stop()

	if _, err := os.Stat(cfg.Store.Socket); !os.IsNotExist(err) {
		t.Errorf("socket left behind after shutdown: %v", err)
	}

	startDaemon(t, cfg)
	snapshot := firstSnapshot(t, remote, schema.KindUsers)
	if len(snapshot.Documents) != 1 || snapshot.Documents[0].ID != "u1" {
		t.Fatalf("documents after restart = %+v, want u1", snapshot.Documents)
	}
	if name := snapshot.Documents[0].Fields["name"]; name != "Ada" {
		t.Errorf("name = %v, want Ada", name)
	}
}

func TestServeRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	startDaemon(t, cfg)

	err := serve(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "held by another taskboard-store") {
		t.Fatalf("second serve error = %v, want lock conflict", err)
	}

	remote := store.NewRemote(cfg.Store.Socket, store.RemoteOptions{WriteTimeout: 2 * time.Second})
	firstSnapshot(t, remote, schema.KindTasks)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Compression = "brotli"
	if err := serve(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected an error for an unknown compression")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.State, lockFileName)); !os.IsNotExist(err) {
		t.Error("invalid configuration should fail before taking the lock")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hello"`},
		{"text", "msg=hello"},
	}
	for _, test := range tests {
		cfg := config.Default()
		cfg.Log.Format = test.format
		cfg.Log.Level = "warn"

		var output bytes.Buffer
		logger, err := newLogger(cfg, &output)
		if err != nil {
			t.Fatalf("newLogger(%s): %v", test.format, err)
		}
		logger.Info("hidden")
		logger.Warn("hello")
		if strings.Contains(output.String(), "hidden") {
			t.Errorf("%s logger emitted below its level: %s", test.format, output.String())
		}
		if !strings.Contains(output.String(), test.want) {
			t.Errorf("%s logger output = %q, want %q", test.format, output.String(), test.want)
		}
	}

	cfg := config.Default()
	cfg.Log.Level = "loud"
	if _, err := newLogger(cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
