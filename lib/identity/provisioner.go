// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// Announcer raises registration notices. *notify.Emitter satisfies it.
type Announcer interface {
	UserRegistered(ctx context.Context, user task.User) (bool, error)
}

// ProvisionerConfig configures a Provisioner. Store is required.
type ProvisionerConfig struct {
	Store store.Store

	// Announcer is told about every provisioned non-admin user. Nil
	// disables notices.
	Announcer Announcer

	// AdminEmails lists the addresses whose users are created as
	// approved admins. Compared case-insensitively.
	AdminEmails []string

	Logger *slog.Logger
}

// Provisioner creates user records for signed-in identities.
type Provisioner struct {
	store       store.Store
	announcer   Announcer
	adminEmails []string
	logger      *slog.Logger
}

// NewProvisioner returns a provisioner.
func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	if cfg.Store == nil {
		panic("identity.NewProvisioner: Store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	emails := make([]string, len(cfg.AdminEmails))
	for i, email := range cfg.AdminEmails {
		emails[i] = strings.ToLower(strings.TrimSpace(email))
	}
	return &Provisioner{
		store:       cfg.Store,
		announcer:   cfg.Announcer,
		adminEmails: emails,
		logger:      cfg.Logger,
	}
}

// IsAdmin reports whether email is one of the admin addresses.
func (p *Provisioner) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	return email != "" && slices.Contains(p.adminEmails, email)
}

// Provision creates the user record for identity if it does not exist
// and reports whether it did. Admins are created approved; everyone
// else waits for approval. The announcer hears about every non-admin
// identity, existing or not, and keeps its own exactly-once record, so
// a notice lost to a crash between the two writes is raised on the
// next sign-in.
func (p *Provisioner) Provision(ctx context.Context, identity Identity) (task.User, bool, error) {
	if identity.ID == "" {
		return task.User{}, false, errors.New("provisioning user: identity has no id")
	}
	name := identity.Name
	if name == "" {
		name = identity.Email
	}
	admin := p.IsAdmin(identity.Email)
	user := task.User{
		ID:        identity.ID,
		Name:      name,
		Email:     identity.Email,
		AvatarURI: identity.AvatarURI,
		Approved:  admin,
		Admin:     admin,
	}

	fields := store.Fields{
		"id":       user.ID,
		"name":     user.Name,
		"approved": user.Approved,
	}
	if user.Email != "" {
		fields["email"] = user.Email
	}
	if user.AvatarURI != "" {
		fields["avatarUri"] = user.AvatarURI
	}
	if user.Admin {
		fields["admin"] = true
	}

	created := true
	if _, err := p.store.Create(ctx, schema.KindUsers, fields); err != nil {
		if !errors.Is(err, store.ErrExists) {
			return task.User{}, false, fmt.Errorf("provisioning user %s: %w", user.ID, err)
		}
		created = false
	}
	if created {
		p.logger.Info("user provisioned", "user", user.ID, "admin", user.Admin)
	}

	if !user.Admin && p.announcer != nil {
		if _, err := p.announcer.UserRegistered(ctx, user); err != nil {
			return user, created, fmt.Errorf("announcing user %s: %w", user.ID, err)
		}
	}
	return user, created, nil
}

// Follow provisions every identity provider signs in until the
// returned cancel is called. Failures are logged.
func (p *Provisioner) Follow(ctx context.Context, provider Provider) (cancel func()) {
	return provider.OnAuthChange(func(signedIn *Identity) {
		if signedIn == nil {
			return
		}
		if _, _, err := p.Provision(ctx, *signedIn); err != nil {
			p.logger.Error("provisioning on sign-in failed", "user", signedIn.ID, "error", err)
		}
	})
}
