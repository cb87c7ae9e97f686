// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/taskboard/lib/codec"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// Config configures an Emitter. Store and AdminRecipient are required.
type Config struct {
	Store store.Store

	// AdminRecipient is the user id notices are addressed to.
	AdminRecipient string

	Logger *slog.Logger
}

// Emitter writes registration notices.
type Emitter struct {
	store     store.Store
	recipient string
	logger    *slog.Logger

	mu       sync.Mutex
	notified map[string]bool
	inFlight map[string]bool
	received []task.Notification
	synced   chan struct{}
}

// New returns an emitter. Call Run to track existing notices.
func New(cfg Config) (*Emitter, error) {
	if cfg.Store == nil {
		return nil, errors.New("notify: store is required")
	}
	if cfg.AdminRecipient == "" {
		return nil, errors.New("notify: admin recipient is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{
		store:     cfg.Store,
		recipient: cfg.AdminRecipient,
		logger:    cfg.Logger,
		notified:  make(map[string]bool),
		inFlight:  make(map[string]bool),
		synced:    make(chan struct{}),
	}, nil
}

// NotificationID is the document id of the registration notice for
// userID.
func NotificationID(userID string) string {
	return task.NotificationKindUserRegistration + ":" + userID
}

// UserRegistered raises the registration notice for user unless user
// is an admin or has already been announced. It reports whether this
// call wrote the notice. A failed write may be retried.
func (e *Emitter) UserRegistered(ctx context.Context, user task.User) (bool, error) {
	if user.ID == "" {
		return false, errors.New("notify: user id is required")
	}
	if user.Admin {
		return false, nil
	}

	e.mu.Lock()
	if e.notified[user.ID] || e.inFlight[user.ID] {
		e.mu.Unlock()
		return false, nil
	}
	e.inFlight[user.ID] = true
	e.mu.Unlock()

	_, err := e.store.Create(ctx, schema.KindNotifications, store.Fields{
		"id":              NotificationID(user.ID),
		"kind":            task.NotificationKindUserRegistration,
		"message":         registrationMessage(user),
		"targetRecipient": e.recipient,
		"relatedUserId":   user.ID,
		"read":            false,
		"createdAt":       schema.ServerTimestamp,
	})

	e.mu.Lock()
	delete(e.inFlight, user.ID)
	if err == nil || errors.Is(err, store.ErrExists) {
		e.notified[user.ID] = true
	}
	e.mu.Unlock()

	switch {
	case err == nil:
		e.logger.Info("registration notice raised", "user", user.ID, "recipient", e.recipient)
		return true, nil
	case errors.Is(err, store.ErrExists):
		return false, nil
	default:
		e.logger.Warn("registration notice failed", "user", user.ID, "error", err)
		return false, fmt.Errorf("raising registration notice for %s: %w", user.ID, err)
	}
}

func registrationMessage(user task.User) string {
	name := user.Name
	if name == "" {
		name = user.ID
	}
	if user.Email != "" {
		return fmt.Sprintf("%s (%s) registered and is waiting for approval", name, user.Email)
	}
	return fmt.Sprintf("%s registered and is waiting for approval", name)
}

// Run follows the notifications collection until ctx is cancelled,
// marking every user that already has a registration notice. Returns
// nil on cancellation and the feed's error otherwise.
func (e *Emitter) Run(ctx context.Context) error {
	subscription, err := e.store.Subscribe(ctx, schema.KindNotifications)
	if err != nil {
		return fmt.Errorf("subscribing to notifications: %w", err)
	}
	defer subscription.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-subscription.C():
			if !ok {
				if err := subscription.Err(); err != nil {
					return fmt.Errorf("notifications feed: %w", err)
				}
				return nil
			}
			e.apply(snapshot)
		}
	}
}

func (e *Emitter) apply(snapshot store.Snapshot) {
	received := make([]task.Notification, 0, len(snapshot.Documents))
	for _, document := range snapshot.Documents {
		notification, err := decodeNotification(document)
		if err != nil {
			e.logger.Warn("skipping undecodable notification", "notification", document.ID, "error", err)
			continue
		}
		received = append(received, notification)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.received = received
	select {
	case <-e.synced:
	default:
		close(e.synced)
	}
	for _, notification := range received {
		if notification.Kind == task.NotificationKindUserRegistration && notification.RelatedUserID != "" {
			e.notified[notification.RelatedUserID] = true
		}
	}
}

func decodeNotification(document store.Document) (task.Notification, error) {
	var record task.NotificationRecord
	if err := codec.Convert(document.Fields, &record); err != nil {
		return task.Notification{}, err
	}
	notification := task.Notification{
		ID:              document.ID,
		Kind:            record.Kind,
		Message:         record.Message,
		TargetRecipient: record.TargetRecipient,
		RelatedUserID:   record.RelatedUserID,
		Read:            record.Read,
		Pending:         record.CreatedAt == nil,
	}
	if record.CreatedAt != nil {
		notification.CreatedAt = record.CreatedAt.Time()
	}
	return notification, nil
}

// Synced is closed once Run has applied the first snapshot.
func (e *Emitter) Synced() <-chan struct{} { return e.synced }

// Notifications returns the notices addressed to recipient from the
// latest snapshot Run applied, in store order.
func (e *Emitter) Notifications(recipient string) []task.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	var matching []task.Notification
	for _, notification := range e.received {
		if notification.TargetRecipient == recipient {
			matching = append(matching, notification)
		}
	}
	return matching
}
