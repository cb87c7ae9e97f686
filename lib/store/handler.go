// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/taskboard/lib/clock"
	"github.com/bureau-foundation/taskboard/lib/codec"
	"github.com/bureau-foundation/taskboard/lib/service"
)

// heartbeatInterval is the time between heartbeat frames on an idle
// subscribe stream.
const heartbeatInterval = 30 * time.Second

// Handler serves a Store over a [service.SocketServer].
type Handler struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewHandler wraps backing for serving. clk drives heartbeats.
func NewHandler(backing Store, clk clock.Clock, logger *slog.Logger) *Handler {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{store: backing, clock: clk, logger: logger}
}

// Register installs the create, update, and subscribe actions.
func (h *Handler) Register(server *service.SocketServer) {
	server.Handle(actionCreate, h.handleCreate)
	server.Handle(actionUpdate, h.handleUpdate)
	server.HandleStream(actionSubscribe, h.handleSubscribe)
}

func (h *Handler) handleCreate(ctx context.Context, raw []byte) (any, error) {
	var request createRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, wireError(fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	id, err := h.store.Create(ctx, request.Kind, request.Fields)
	if err != nil {
		return nil, wireError(err)
	}
	return createResponse{ID: id}, nil
}

func (h *Handler) handleUpdate(ctx context.Context, raw []byte) (any, error) {
	var request updateRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, wireError(fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if err := h.store.Update(ctx, request.Kind, request.ID, request.Patch); err != nil {
		return nil, wireError(err)
	}
	return nil, nil
}

func wireError(err error) error {
	return &service.CodedError{Code: errorCode(err), Err: err}
}

// handleSubscribe forwards every snapshot of the requested collection
// until the client hangs up, the feed ends, or the server stops.
func (h *Handler) handleSubscribe(ctx context.Context, raw []byte, conn net.Conn) {
	encoder := codec.NewEncoder(conn)

	var request subscribeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		encoder.Encode(subscribeFrame{Type: "error", Code: codeInvalid, Message: "invalid request: " + err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The client never writes after its request; a read returning means
	// it hung up.
	go func() {
		io.Copy(io.Discard, conn)
		cancel()
	}()

	subscription, err := h.store.Subscribe(ctx, request.Kind)
	if err != nil {
		encoder.Encode(subscribeFrame{Type: "error", Code: errorCode(err), Message: err.Error()})
		return
	}
	defer subscription.Close()

	h.logger.Info("subscribe stream started", "kind", request.Kind)
	defer h.logger.Info("subscribe stream ended", "kind", request.Kind)

	heartbeat := h.clock.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case snapshot, ok := <-subscription.C():
			if !ok {
				if err := subscription.Err(); err != nil {
					encoder.Encode(subscribeFrame{Type: "error", Code: errorCode(err), Message: err.Error()})
				}
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := encoder.Encode(subscribeFrame{Type: "snapshot", Snapshot: &snapshot}); err != nil {
				h.logger.Debug("subscribe stream write error", "kind", request.Kind, "error", err)
				return
			}

		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := encoder.Encode(subscribeFrame{Type: "heartbeat"}); err != nil {
				return
			}
		}
	}
}

const writeTimeout = 10 * time.Second
