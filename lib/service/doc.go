// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service is the Unix socket protocol between the taskboard
// client and the store daemon.
//
// Every connection carries one CBOR request map with an "action" field.
// Request-response actions ([SocketServer.Handle]) reply with one
// [Response] envelope and close. Streaming actions
// ([SocketServer.HandleStream]) keep the connection and write CBOR
// values until either side hangs up; the client reads them through
// [Client.OpenStream].
//
// The socket carries no authentication. Access is controlled by the
// socket file's permissions.
package service
