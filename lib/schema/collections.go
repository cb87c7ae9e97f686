// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Kind names a document collection in the store.
type Kind string

const (
	// KindTasks holds task documents keyed by store-assigned id.
	KindTasks Kind = "tasks"

	// KindUsers holds user documents keyed by identity provider id.
	KindUsers Kind = "users"

	// KindNotifications holds side-channel notices addressed to a
	// recipient (currently: registration notices for admins).
	KindNotifications Kind = "notifications"
)

// Kinds lists every collection, in the order stores create them.
var Kinds = []Kind{KindTasks, KindUsers, KindNotifications}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	switch k {
	case KindTasks, KindUsers, KindNotifications:
		return true
	}
	return false
}
