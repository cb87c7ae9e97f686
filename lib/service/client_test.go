// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/taskboard/lib/testutil"
)

func TestClientCallDecodesResult(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("create", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"id": "task-1"}, nil
	})
	startServer(t, server, socketPath)

	var result struct {
		ID string `cbor:"id"`
	}
	if err := NewClient(socketPath).Call(context.Background(), "create", map[string]any{"kind": "tasks"}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.ID != "task-1" {
		t.Errorf("id = %q, want task-1", result.ID)
	}
}

func TestClientCallServiceError(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("update", func(ctx context.Context, raw []byte) (any, error) {
		return nil, &CodedError{Code: "not_found", Err: errors.New("document not found")}
	})
	startServer(t, server, socketPath)

	err := NewClient(socketPath).Call(context.Background(), "update", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if serviceErr.Action != "update" || serviceErr.Code != "not_found" || serviceErr.Message != "document not found" {
		t.Errorf("ServiceError = %+v", serviceErr)
	}
}

func TestClientCallConnectionRefused(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "absent.sock")

	err := NewClient(socketPath).Call(context.Background(), "create", nil, nil)
	if err == nil {
		t.Fatal("expected error for missing socket")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Errorf("transport failure should not be a *ServiceError: %v", err)
	}
}

func TestClientCallHonorsContextDeadline(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})
	startServer(t, server, socketPath)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewClient(socketPath).Call(ctx, "slow", nil, nil)
	if err == nil {
		t.Fatal("expected deadline error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Errorf("expected a deadline error, got %v", err)
		}
	}
}

func TestStreamCloseOnContextCancel(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.HandleStream("subscribe", func(ctx context.Context, raw []byte, conn net.Conn) {
		<-ctx.Done()
	})
	startServer(t, server, socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := NewClient(socketPath).OpenStream(ctx, "subscribe", nil)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer stream.Close()

	decoded := make(chan error, 1)
	go func() {
		var frame map[string]any
		decoded <- stream.Decode(&frame)
	}()
	cancel()
	if err := testutil.RequireReceive(t, decoded, 5*time.Second, "Decode did not unblock"); err == nil {
		t.Error("expected Decode to fail after cancel")
	}
}
