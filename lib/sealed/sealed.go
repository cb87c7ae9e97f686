// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts taskboard backup archives with age.
//
// A backup is sealed to one or more x25519 recipients (age1... public
// keys) and opened with any matching identity. Identities are handled
// as [secret.Buffer] values so the private key never sits in a heap
// string longer than the age API requires.
package sealed

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/taskboard/lib/secret"
)

// ErrNoRecipients is returned by [Seal] when no recipient was given.
var ErrNoRecipients = errors.New("sealed: at least one recipient is required")

// Keypair is an age x25519 keypair. Close releases the private key.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient.
	PublicKey string
}

// Close releases the private key memory. Safe to call more than once.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair returns a fresh x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// ParseRecipients parses age1... public keys. Blank entries are
// skipped.
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	return recipients, nil
}

// ParseIdentity validates an AGE-SECRET-KEY-1... identity held in
// privateKey. The buffer is borrowed, not closed.
func ParseIdentity(privateKey *secret.Buffer) (age.Identity, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(privateKey.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid age private key: %w", err)
	}
	return identity, nil
}

// Seal returns a writer that encrypts everything written to it into
// destination for the given recipient keys. The caller must Close the
// writer to flush the final chunk; closing does not close destination.
func Seal(destination io.Writer, recipientKeys []string) (io.WriteCloser, error) {
	recipients, err := ParseRecipients(recipientKeys)
	if err != nil {
		return nil, err
	}
	writer, err := age.Encrypt(destination, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	return writer, nil
}

// Open returns a reader over the plaintext of source, decrypted with
// privateKey. Truncated or tampered input surfaces as a read error.
func Open(source io.Reader, privateKey *secret.Buffer) (io.Reader, error) {
	identity, err := ParseIdentity(privateKey)
	if err != nil {
		return nil, err
	}
	reader, err := age.Decrypt(source, identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return reader, nil
}
