// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a bounded pool of SQLite connections with
// per-connection prepared statement caches.
//
// Each pooled [Instance] owns one synchronized connection from
// package sqliter and an LRU cache of prepared statements keyed by exact
// SQL text. Statements are checked out of the cache for one use and put
// back afterwards, reset and with their bindings cleared; the least
// recently used statement is finalized when the cache overflows.
//
// The [Pool] opens connections lazily up to its capacity (4 by default,
// always 1 for in-memory databases) and reuses the most recently
// released one first, which keeps its statement cache warm. When every
// connection is leased, Take waits for a release or for the context to
// be cancelled.
//
// # Leases
//
// Go has no goroutine-local storage, so a checkout is recorded on the
// context instead. [Pool.Take] returns a derived context carrying the
// lease; calls that pass that context back to the pool get the same
// instance. This is what lets a transaction body call back into the
// pool:
//
//	err := pool.Transaction(ctx, func(ctx context.Context) error {
//	    if _, err := pool.Insert(ctx, "INSERT INTO item(name) VALUES (?)", func(stmt *sqlitepool.Statement) error {
//	        return stmt.Text("first")
//	    }); err != nil {
//	        return err
//	    }
//	    count, err := pool.LongForQuery(ctx, "SELECT count(*) FROM item")
//	    ...
//	})
//
// The insert and the count run on the transaction's connection. Using
// the outer ctx instead would lease a second connection, outside the
// transaction, and with a capacity of 1 would wait forever.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Database: sqliter.Config{
//	        Name:     "telemetry.db",
//	        BasePath: "/var/lib/telemetry",
//	        Version:  1,
//	        Create: func(conn sqliter.Connection) error {
//	            return conn.Exec(schema)
//	        },
//	    },
//	    Instances: 8,
//	    Logger:    logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
package sqlitepool
