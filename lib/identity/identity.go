// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity connects an authentication source to the users
// collection. A [Provider] reports who is signed in; a [Provisioner]
// makes sure every signed-in identity has a user record and announces
// new non-admin users through the notification emitter.
package identity

import (
	"context"
	"errors"
	"sync"
)

// Identity is an authenticated principal as the provider reports it.
// ID becomes the user document id.
type Identity struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email,omitempty" yaml:"email"`
	AvatarURI string `json:"avatarUri,omitempty" yaml:"avatar_uri"`
}

// Provider is an authentication source.
type Provider interface {
	// SignIn authenticates and returns the signed-in identity.
	SignIn(ctx context.Context) (Identity, error)

	// SignOut ends the current session.
	SignOut(ctx context.Context) error

	// OnAuthChange registers listener for every sign-in (non-nil) and
	// sign-out (nil). cancel unregisters it.
	OnAuthChange(listener func(*Identity)) (cancel func())
}

// ErrNoIdentity is returned by SignIn when the provider has nothing to
// sign in as.
var ErrNoIdentity = errors.New("identity: no identity configured")

// Static signs in as a fixed identity, taken from configuration or
// flags.
type Static struct {
	identity Identity

	mu        sync.Mutex
	current   *Identity
	listeners map[int]func(*Identity)
	nextID    int
}

// NewStatic returns a provider that signs in as identity.
func NewStatic(identity Identity) *Static {
	return &Static{identity: identity, listeners: make(map[int]func(*Identity))}
}

// SignIn signs in as the configured identity and notifies listeners.
func (s *Static) SignIn(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if s.identity.ID == "" {
		return Identity{}, ErrNoIdentity
	}
	signedIn := s.identity
	s.notify(&signedIn)
	return signedIn, nil
}

// SignOut clears the session and notifies listeners. Signing out
// while signed out does nothing.
func (s *Static) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	wasSignedIn := s.current != nil
	s.mu.Unlock()
	if wasSignedIn {
		s.notify(nil)
	}
	return nil
}

// Current returns the signed-in identity, or nil.
func (s *Static) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	current := *s.current
	return &current
}

// OnAuthChange registers listener. It is called synchronously from
// SignIn and SignOut, outside the provider's lock.
func (s *Static) OnAuthChange(listener func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Static) notify(identity *Identity) {
	s.mu.Lock()
	s.current = identity
	listeners := make([]func(*Identity), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		if identity == nil {
			listener(nil)
			continue
		}
		copied := *identity
		listener(&copied)
	}
}
