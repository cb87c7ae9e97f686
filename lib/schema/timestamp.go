// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// Timestamp is the store's representation of an absolute time: whole
// seconds since the Unix epoch plus a nanosecond remainder. Server
// assigned fields (createdAt, updatedAt) and client supplied fields
// (dueAt, postedAt) share this shape.
//
// A server assigned field that is missing from a document has not been
// finalized yet: the store echoed a local write before committing it.
// Readers decode such fields into a nil *Timestamp.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// TimestampOf converts t to the store representation.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int64(t.Nanosecond())}
}

// Time converts the timestamp to a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, ts.Nanoseconds).UTC()
}

// Sentinel is a placeholder value in a write that the store replaces
// at commit time. It survives the socket protocol as the map
// {".sv": op}.
type Sentinel struct {
	Op string `json:".sv"`
}

// ServerTimestamp asks the store to substitute its commit time.
var ServerTimestamp = Sentinel{Op: "timestamp"}

// IsServerTimestamp reports whether value is the server-timestamp
// sentinel, either as a Sentinel or in the decoded map form it takes
// after crossing the socket.
func IsServerTimestamp(value any) bool {
	switch typed := value.(type) {
	case Sentinel:
		return typed.Op == ServerTimestamp.Op
	case *Sentinel:
		return typed != nil && typed.Op == ServerTimestamp.Op
	case map[string]any:
		op, ok := typed[".sv"].(string)
		return ok && len(typed) == 1 && op == ServerTimestamp.Op
	}
	return false
}
