// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/schema"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	directory := t.TempDir()
	keyFile := filepath.Join(directory, "store.key")
	if err := os.WriteFile(keyFile, []byte(strings.Repeat("ab", KeySize)+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name string
		cfg  OpenConfig
		want string
	}{
		{"memory", OpenConfig{Driver: DriverMemory}, "*store.Memory"},
		{"remote", OpenConfig{Driver: DriverRemote, Socket: filepath.Join(directory, "absent.sock")}, "*store.Remote"},
		{"sqlite", OpenConfig{Driver: DriverSQLite, Path: filepath.Join(directory, "plain.db")}, "*store.SQLite"},
		{"sqlite encrypted", OpenConfig{Driver: DriverSQLite, Path: filepath.Join(directory, "sealed.db"), KeyFile: keyFile}, "*store.SQLite"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.cfg.Clock = clock.Fake(testEpoch)
			opened, release, err := Open(ctx, test.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer release()
			if got := fmt.Sprintf("%T", opened); got != test.want {
				t.Errorf("Open returned %s, want %s", got, test.want)
			}
		})
	}
}

func TestOpenEncryptedSQLiteNeedsKey(t *testing.T) {
	ctx := context.Background()
	directory := t.TempDir()
	path := filepath.Join(directory, "store.db")
	keyFile := filepath.Join(directory, "store.key")
	if err := os.WriteFile(keyFile, []byte(strings.Repeat("cd", KeySize)), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sealedStore, release, err := Open(ctx, OpenConfig{Driver: DriverSQLite, Path: path, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := sealedStore.Create(ctx, schema.KindTasks, Fields{"title": "secret plans"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if _, _, err := Open(ctx, OpenConfig{Driver: DriverSQLite, Path: path}); err == nil {
		t.Error("opened encrypted store without the key")
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, _, err := Open(ctx, OpenConfig{Driver: "postgres"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown driver: err = %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.key")
	if _, _, err := Open(ctx, OpenConfig{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "s.db"), KeyFile: missing}); err == nil {
		t.Error("missing key file accepted")
	}
}
