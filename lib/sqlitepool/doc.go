// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite connection pool behind the
// durable task store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies the same
// pragmas to every connection:
//
//   - journal_mode=WAL so snapshot reads never block the writer.
//   - synchronous=NORMAL: commits survive a process crash.
//   - busy_timeout=5000 to wait out write contention.
//   - cache_size=-8192 (8 MB per connection) and temp_store=MEMORY.
//
// A [Config.Schema] script runs once, in its own immediate transaction,
// when the pool opens. Callers write SQL directly with sqlitex.Execute
// and manage their own transactions:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/taskboard/store.db",
//	    Schema: schemaSQL,
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
package sqlitepool
