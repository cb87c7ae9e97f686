// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/secret"
)

// KeySize is the length of the store encryption key.
const KeySize = 32

// sealedVersion prefixes every sealed body and is authenticated with
// it.
const sealedVersion byte = 0x01

const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// encodingSealedSuffix marks an encoding whose body is sealed, e.g.
// "cbor+zstd+sealed".
const encodingSealedSuffix = "+sealed"

var hkdfInfoBody = []byte("taskboard.store.body.v1")

// Sealer encrypts document bodies at rest with XChaCha20-Poly1305.
// The body key is derived from the configured key with HKDF-SHA256,
// and each body is bound to its kind and id, so swapping rows between
// documents fails authentication.
type Sealer struct {
	aead cipher.AEAD
	key  *secret.Buffer
}

// NewSealer takes ownership of key, which must be [KeySize] bytes.
// Close releases it.
func NewSealer(key *secret.Buffer) (*Sealer, error) {
	if key.Len() != KeySize {
		return nil, fmt.Errorf("store encryption key must be %d bytes, got %d", KeySize, key.Len())
	}
	bodyKey, err := secret.New(KeySize)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(hkdf.New(sha256.New, key.Bytes(), nil, hkdfInfoBody), bodyKey.Bytes()); err != nil {
		bodyKey.Close()
		return nil, fmt.Errorf("deriving body key: %w", err)
	}
	key.Close()

	aead, err := chacha20poly1305.NewX(bodyKey.Bytes())
	if err != nil {
		bodyKey.Close()
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return &Sealer{aead: aead, key: bodyKey}, nil
}

// Close releases the derived key.
func (s *Sealer) Close() error {
	return s.key.Close()
}

// Seal encrypts body for the document kind/id:
//
//	[version 0x01] [24-byte nonce] [ciphertext+tag]
func (s *Sealer) Seal(kind schema.Kind, id string, body []byte) ([]byte, error) {
	output := make([]byte, 1+chacha20poly1305.NonceSizeX, len(body)+sealedOverhead)
	output[0] = sealedVersion
	nonce := output[1 : 1+chacha20poly1305.NonceSizeX]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return s.aead.Seal(output, nonce, body, sealedAAD(sealedVersion, kind, id)), nil
}

// Open reverses Seal.
func (s *Sealer) Open(kind schema.Kind, id string, sealed []byte) ([]byte, error) {
	if len(sealed) < sealedOverhead {
		return nil, fmt.Errorf("sealed body is %d bytes, minimum is %d", len(sealed), sealedOverhead)
	}
	if sealed[0] != sealedVersion {
		return nil, fmt.Errorf("sealed body version %d is not supported", sealed[0])
	}
	nonce := sealed[1 : 1+chacha20poly1305.NonceSizeX]
	body, err := s.aead.Open(nil, nonce, sealed[1+chacha20poly1305.NonceSizeX:], sealedAAD(sealed[0], kind, id))
	if err != nil {
		return nil, fmt.Errorf("opening sealed body (wrong key or tampered row): %w", err)
	}
	return body, nil
}

// sealedAAD is version || kind || 0x00 || id.
func sealedAAD(version byte, kind schema.Kind, id string) []byte {
	aad := make([]byte, 0, 2+len(kind)+len(id))
	aad = append(aad, version)
	aad = append(aad, kind...)
	aad = append(aad, 0)
	return append(aad, id...)
}

// encodeBody compresses then, when sealer is set, seals a body.
func encodeBody(kind schema.Kind, id string, body []byte, compression Compression, sealer *Sealer) ([]byte, string, error) {
	stored, encoding, err := compressBody(body, compression)
	if err != nil {
		return nil, "", err
	}
	if sealer == nil {
		return stored, encoding, nil
	}
	sealed, err := sealer.Seal(kind, id, stored)
	if err != nil {
		return nil, "", err
	}
	return sealed, encoding + encodingSealedSuffix, nil
}

// decodeBody reverses encodeBody.
func decodeBody(kind schema.Kind, id string, stored []byte, encoding string, size int, sealer *Sealer) ([]byte, error) {
	if base, ok := strings.CutSuffix(encoding, encodingSealedSuffix); ok {
		if sealer == nil {
			return nil, fmt.Errorf("body is encrypted and no encryption key is configured")
		}
		opened, err := sealer.Open(kind, id, stored)
		if err != nil {
			return nil, err
		}
		stored, encoding = opened, base
	}
	return decompressBody(stored, encoding, size)
}
