// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"

	"github.com/bureau-foundation/taskboard/lib/schema"
)

// Socket actions served by [Handler] and used by [Remote].
const (
	actionCreate    = "create"
	actionUpdate    = "update"
	actionSubscribe = "subscribe"
)

type createRequest struct {
	Kind   schema.Kind `cbor:"kind"`
	Fields Fields      `cbor:"fields"`
}

type createResponse struct {
	ID string `cbor:"id"`
}

type updateRequest struct {
	Kind  schema.Kind `cbor:"kind"`
	ID    string      `cbor:"id"`
	Patch Fields      `cbor:"patch"`
}

type subscribeRequest struct {
	Kind schema.Kind `cbor:"kind"`
}

// subscribeFrame is one CBOR value on a subscribe stream:
//
//   - "snapshot": the collection's full content (Snapshot populated)
//   - "heartbeat": liveness, no payload
//   - "error": terminal failure, the stream closes (Code, Message)
type subscribeFrame struct {
	Type     string    `cbor:"type"`
	Snapshot *Snapshot `cbor:"snapshot,omitempty"`
	Code     string    `cbor:"code,omitempty"`
	Message  string    `cbor:"message,omitempty"`
}

// Error codes carried across the socket for the store's sentinel
// errors.
const (
	codeNotFound    = "not_found"
	codeExists      = "exists"
	codeInvalid     = "invalid"
	codeUnavailable = "unavailable"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return codeNotFound
	case errors.Is(err, ErrExists):
		return codeExists
	case errors.Is(err, ErrInvalid):
		return codeInvalid
	case errors.Is(err, ErrUnavailable):
		return codeUnavailable
	}
	return ""
}

// codeError maps a wire code back to its sentinel. Unknown codes are
// treated as unavailability: the caller cannot tell what happened.
func codeError(code string) error {
	switch code {
	case codeNotFound:
		return ErrNotFound
	case codeExists:
		return ErrExists
	case codeInvalid:
		return ErrInvalid
	}
	return ErrUnavailable
}
