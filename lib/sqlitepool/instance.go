// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/sqliter/lib/lru"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// DefaultCacheSize is the number of prepared statements each instance
// keeps when Config.CacheSize is zero.
const DefaultCacheSize = 200

// Instance is one pooled connection together with its cache of
// prepared statements, keyed by exact SQL text.
//
// A statement is checked out of the cache for the duration of one use,
// so an Instance never hands the same prepared statement to two users.
//
// Lock order is mu, then the cache lock, then the connection lock:
// Release and Close reset and finalize statements (which lock the
// connection) while holding mu, and eviction finalizes inside the
// cache lock. Nothing that holds the connection lock may call back into
// the Instance.
type Instance struct {
	conn      *sqliter.Synchronized
	cache     *lru.Cache[string, *Statement]
	cacheSize int
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewInstance wraps conn with a statement cache of cacheSize entries.
// A cacheSize of 0 disables caching: every statement is finalized after
// use.
func NewInstance(conn *sqliter.Synchronized, cacheSize int, logger *slog.Logger) *Instance {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("connection_id", conn.ID())
	instance := &Instance{
		conn:      conn,
		cacheSize: cacheSize,
		logger:    logger,
	}
	instance.cache = lru.New(cacheSize, func(sql string, stmt *Statement) {
		instance.finalize(stmt)
	})
	return instance
}

// Connection returns the instance's connection.
func (i *Instance) Connection() sqliter.Connection { return i.conn }

// Acquire returns a prepared statement for sql, from the cache when one
// is available. Every Acquire must be paired with a Release.
func (i *Instance) Acquire(sql string) (*Statement, error) {
	i.mu.Lock()
	closed := i.closed
	i.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("sqlitepool: acquire: instance %w", sqliter.ErrClosed)
	}

	if stmt, ok := i.cache.Take(sql); ok {
		return stmt, nil
	}
	raw, err := i.conn.Prepare(sql)
	if err != nil {
		return nil, err
	}
	return newStatement(sql, raw), nil
}

// Release returns stmt to the cache, evicting and finalizing the least
// recently used statement if the cache is full. On a closed instance,
// or with caching disabled, the statement is finalized instead.
func (i *Instance) Release(stmt *Statement) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || i.cacheSize == 0 {
		i.finalize(stmt)
		return
	}
	if err := stmt.reset(); err != nil {
		// A statement that cannot be reset is not reusable.
		i.logger.Warn("discarding statement that failed to reset",
			"sql_hash", sqliter.Fingerprint(stmt.sql),
			"error", err,
		)
		i.finalize(stmt)
		return
	}
	i.cache.Put(stmt.sql, stmt)
}

func (i *Instance) finalize(stmt *Statement) {
	if err := stmt.stmt.Finalize(); err != nil && !errors.Is(err, sqliter.ErrClosed) {
		i.logger.Warn("finalizing statement",
			"sql_hash", sqliter.Fingerprint(stmt.sql),
			"error", err,
		)
	}
}

// CacheStats reports statement cache activity.
func (i *Instance) CacheStats() lru.Stats { return i.cache.Stats() }

// Close finalizes every cached statement and closes the connection.
// Statements still checked out are finalized by the connection and
// again, harmlessly, when they are released.
func (i *Instance) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return fmt.Errorf("sqlitepool: close: instance %w", sqliter.ErrClosed)
	}
	i.closed = true
	i.cache.Purge()
	i.mu.Unlock()

	return i.conn.Close()
}

// WithStatement acquires the statement for sql, passes it to fn and
// releases it afterwards, whatever fn returns.
func (i *Instance) WithStatement(sql string, fn func(stmt *Statement) error) error {
	stmt, err := i.Acquire(sql)
	if err != nil {
		return err
	}
	defer i.Release(stmt)
	return fn(stmt)
}

// bindWith runs bind, if any, on stmt.
func bindWith(stmt *Statement, bind func(*Statement) error) error {
	if bind == nil {
		return nil
	}
	return bind(stmt)
}

// Execute runs sql, which must not return rows, after bind has set its
// parameters. bind may be nil.
func (i *Instance) Execute(sql string, bind func(*Statement) error) error {
	return i.WithStatement(sql, func(stmt *Statement) error {
		if err := bindWith(stmt, bind); err != nil {
			return err
		}
		return stmt.Execute()
	})
}

// Insert runs an INSERT and returns the new rowid, or -1 if no row was
// inserted.
func (i *Instance) Insert(sql string, bind func(*Statement) error) (int64, error) {
	rowID := int64(-1)
	err := i.WithStatement(sql, func(stmt *Statement) error {
		if err := bindWith(stmt, bind); err != nil {
			return err
		}
		var err error
		rowID, err = stmt.Insert()
		return err
	})
	return rowID, err
}

// UpdateDelete runs an UPDATE or DELETE and returns the number of
// changed rows.
func (i *Instance) UpdateDelete(sql string, bind func(*Statement) error) (int, error) {
	var changed int
	err := i.WithStatement(sql, func(stmt *Statement) error {
		if err := bindWith(stmt, bind); err != nil {
			return err
		}
		var err error
		changed, err = stmt.UpdateDelete()
		return err
	})
	return changed, err
}

// Query runs sql and hands the cursor to fn. The cursor is only valid
// until fn returns.
func (i *Instance) Query(sql string, bind func(*Statement) error, fn func(cursor sqliter.Cursor) error) error {
	return i.WithStatement(sql, func(stmt *Statement) error {
		if err := bindWith(stmt, bind); err != nil {
			return err
		}
		cursor, err := stmt.Query()
		if err != nil {
			return err
		}
		return fn(cursor)
	})
}

// Exec runs a script of one or more statements without caching them.
func (i *Instance) Exec(sql string) error { return i.conn.Exec(sql) }

// LongForQuery returns the first column of the first row of sql.
func (i *Instance) LongForQuery(sql string) (int64, error) {
	return sqliter.LongForQuery(i.conn, sql)
}

// StringForQuery returns the first column of the first row of sql.
func (i *Instance) StringForQuery(sql string) (string, error) {
	return sqliter.StringForQuery(i.conn, sql)
}

// Transaction runs fn inside a transaction on this instance. It commits
// when fn returns nil and rolls back otherwise.
func (i *Instance) Transaction(fn func(instance *Instance) error) error {
	return sqliter.WithTransaction(i.conn, func(sqliter.Connection) error {
		return fn(i)
	})
}
