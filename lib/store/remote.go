// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/service"
)

// DefaultWriteTimeout bounds a remote create or update whose context
// has no deadline of its own.
const DefaultWriteTimeout = 10 * time.Second

// Remote is a Store served by a taskboard-store daemon over its Unix
// socket. Every failure to reach the daemon, and every deadline, is
// reported as ErrUnavailable.
type Remote struct {
	client       *service.Client
	writeTimeout time.Duration
	logger       *slog.Logger
}

var _ Store = (*Remote)(nil)

// RemoteOptions configures a Remote.
type RemoteOptions struct {
	// WriteTimeout defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// NewRemote returns a store backed by the daemon at socketPath. No
// connection is made until the first operation.
func NewRemote(socketPath string, options RemoteOptions) *Remote {
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = DefaultWriteTimeout
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Remote{
		client:       service.NewClient(socketPath),
		writeTimeout: options.WriteTimeout,
		logger:       options.Logger,
	}
}

// Create implements [Store].
func (r *Remote) Create(ctx context.Context, kind schema.Kind, fields Fields) (string, error) {
	ctx, cancel := r.withWriteTimeout(ctx)
	defer cancel()

	var response createResponse
	err := r.client.Call(ctx, actionCreate, map[string]any{"kind": kind, "fields": fields}, &response)
	if err != nil {
		return "", remoteError("create", err)
	}
	return response.ID, nil
}

// Update implements [Store].
func (r *Remote) Update(ctx context.Context, kind schema.Kind, id string, patch Fields) error {
	ctx, cancel := r.withWriteTimeout(ctx)
	defer cancel()

	err := r.client.Call(ctx, actionUpdate, map[string]any{"kind": kind, "id": id, "patch": patch}, nil)
	if err != nil {
		return remoteError("update", err)
	}
	return nil
}

// Subscribe implements [Store]. It returns once the first snapshot has
// arrived, so a daemon that is down fails here rather than later.
func (r *Remote) Subscribe(ctx context.Context, kind schema.Kind) (*Subscription, error) {
	stream, err := r.client.OpenStream(ctx, actionSubscribe, map[string]any{"kind": kind})
	if err != nil {
		return nil, unavailable("subscribe", err)
	}

	first, err := nextSnapshot(stream)
	if err != nil {
		stream.Close()
		if ctx.Err() != nil {
			return nil, unavailable("subscribe", ctx.Err())
		}
		return nil, fmt.Errorf("subscribe %s: %w", kind, err)
	}

	subscription := newSubscription(kind, func() { stream.Close() })
	subscription.deliver(first)

	go func() {
		for {
			snapshot, err := nextSnapshot(stream)
			if err != nil {
				select {
				case <-subscription.Done():
					// Closed locally; the read error is the close itself.
				default:
					if ctx.Err() != nil {
						subscription.finish(nil)
					} else {
						r.logger.Warn("subscribe stream failed", "kind", kind, "error", err)
						subscription.finish(err)
					}
				}
				return
			}
			subscription.deliver(snapshot)
		}
	}()
	return subscription, nil
}

// nextSnapshot reads frames until a snapshot or a terminal error.
func nextSnapshot(stream *service.Stream) (Snapshot, error) {
	for {
		var frame subscribeFrame
		if err := stream.Decode(&frame); err != nil {
			return Snapshot{}, unavailable("reading subscribe frame", err)
		}
		switch frame.Type {
		case "snapshot":
			if frame.Snapshot == nil {
				return Snapshot{}, unavailable("reading subscribe frame", errors.New("snapshot frame without snapshot"))
			}
			return *frame.Snapshot, nil
		case "error":
			return Snapshot{}, fmt.Errorf("%w: %s", codeError(frame.Code), frame.Message)
		}
		// Heartbeats and unknown frame types carry nothing to deliver.
	}
}

func (r *Remote) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.writeTimeout)
}

// remoteError maps a client error onto the store's sentinels.
func remoteError(operation string, err error) error {
	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		return fmt.Errorf("%s: %w: %s", operation, codeError(serviceErr.Code), serviceErr.Message)
	}
	return unavailable(operation, err)
}
