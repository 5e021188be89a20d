// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/sqliter/lib/lru"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// DefaultInstances is the pool capacity used when Config.Instances is
// zero.
const DefaultInstances = 4

// Config holds the parameters for opening a pool.
type Config struct {
	// Database describes the database and how its connections are
	// prepared. If Database.Logger is nil, Logger is used.
	Database sqliter.Config

	// Instances is the maximum number of connections. Defaults to
	// DefaultInstances. In-memory databases always get exactly one:
	// each anonymous in-memory connection would be a separate database,
	// and a shared named one fails instead of waiting when two
	// connections write at once.
	Instances int

	// CacheSize is the number of prepared statements each connection
	// keeps. Defaults to DefaultCacheSize.
	CacheSize int

	// DisableStatementCache finalizes every statement after use.
	DisableStatementCache bool

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Pool is a bounded set of connections to one database. Connections are
// opened lazily, up to the capacity, and reused most recently released
// first.
//
// A checkout is a lease carried on a context. Take returns a context
// that records the lease; passing that context to Take again (directly
// or through the convenience methods) returns the same instance instead
// of a second one. Nested calls therefore never deadlock on a full pool
// and see the outer call's transaction.
//
// Pool is safe for concurrent use.
type Pool struct {
	manager   *sqliter.Manager
	capacity  int
	cacheSize int
	logger    *slog.Logger

	mu        sync.Mutex
	instances []*Instance
	// idle holds released instances; the last element was released
	// most recently.
	idle []*Instance
	// opening counts instances being opened outside the lock.
	opening int
	// changed is closed and replaced whenever an instance is released
	// or the pool closes, waking every waiting Take.
	changed chan struct{}
	closed  bool
}

// leaseKey keys a lease in a context. Including the pool keeps leases
// from different pools apart.
type leaseKey struct{ pool *Pool }

type lease struct {
	instance *Instance

	mu    sync.Mutex
	depth int
}

// Open validates the configuration and returns a pool. No connection is
// opened until the first Take; the schema migration runs then.
func Open(cfg Config) (*Pool, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	database := cfg.Database
	if database.Logger == nil {
		database.Logger = logger
	}
	manager, err := sqliter.NewManager(database)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: %w", err)
	}

	capacity := cfg.Instances
	if capacity <= 0 {
		capacity = DefaultInstances
	}
	if database.InMemory {
		capacity = 1
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if cfg.DisableStatementCache {
		cacheSize = 0
	}

	logger.Info("sqlite pool opened",
		"path", manager.Path(),
		"instances", capacity,
		"cache_size", cacheSize,
	)
	return &Pool{
		manager:   manager,
		capacity:  capacity,
		cacheSize: cacheSize,
		logger:    logger,
		changed:   make(chan struct{}),
	}, nil
}

// Capacity is the maximum number of connections the pool opens.
func (p *Pool) Capacity() int { return p.capacity }

// Path is the database path the pool's connections open.
func (p *Pool) Path() string { return p.manager.Path() }

func leaseFrom(ctx context.Context, p *Pool) *lease {
	l, _ := ctx.Value(leaseKey{p}).(*lease)
	return l
}

// Take checks out an instance. If ctx already carries a live lease
// from this pool, that lease's instance is returned along with ctx
// itself. Otherwise Take waits until an instance is free or ctx is
// done, and returns a context carrying the new lease.
//
// Every successful Take must be matched by a Put with the returned
// context:
//
//	ctx, instance, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(ctx)
func (p *Pool) Take(ctx context.Context) (context.Context, *Instance, error) {
	if l := leaseFrom(ctx, p); l != nil {
		l.mu.Lock()
		if l.depth > 0 {
			l.depth++
			l.mu.Unlock()
			return ctx, l.instance, nil
		}
		l.mu.Unlock()
	}

	instance, err := p.checkout(ctx)
	if err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, leaseKey{p}, &lease{instance: instance, depth: 1}), instance, nil
}

func (p *Pool) checkout(ctx context.Context) (*Instance, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, fmt.Errorf("sqlitepool: take: pool %w", sqliter.ErrClosed)
		}
		if count := len(p.idle); count > 0 {
			instance := p.idle[count-1]
			p.idle = p.idle[:count-1]
			p.mu.Unlock()
			return instance, nil
		}
		if len(p.instances)+p.opening < p.capacity {
			p.opening++
			p.mu.Unlock()
			return p.openInstance()
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, fmt.Errorf("sqlitepool: take: %w", ctx.Err())
		}
	}
}

// openInstance opens a connection for a slot already reserved in
// p.opening.
func (p *Pool) openInstance() (*Instance, error) {
	conn, err := p.manager.OpenSynchronized()

	p.mu.Lock()
	p.opening--
	if err != nil {
		// The slot is free again; let a waiter try.
		p.broadcastLocked()
		p.mu.Unlock()
		return nil, fmt.Errorf("sqlitepool: opening connection: %w", err)
	}
	instance := NewInstance(conn, p.cacheSize, p.logger)
	if p.closed {
		p.mu.Unlock()
		instance.Close()
		return nil, fmt.Errorf("sqlitepool: take: pool %w", sqliter.ErrClosed)
	}
	p.instances = append(p.instances, instance)
	count := len(p.instances)
	p.mu.Unlock()

	p.logger.Debug("sqlite pool connection opened",
		"connection_id", conn.ID(),
		"instances", count,
	)
	return instance, nil
}

func (p *Pool) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// Put ends a lease taken with Take. For a nested Take it only unwinds
// one level; the instance returns to the pool when the outermost lease
// is put. Put on a context without a live lease is a no-op.
func (p *Pool) Put(ctx context.Context) {
	l := leaseFrom(ctx, p)
	if l == nil {
		p.logger.Warn("sqlite pool put without a lease")
		return
	}
	l.mu.Lock()
	if l.depth == 0 {
		l.mu.Unlock()
		p.logger.Warn("sqlite pool put on an ended lease")
		return
	}
	l.depth--
	done := l.depth == 0
	l.mu.Unlock()
	if !done {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.idle = append(p.idle, l.instance)
	p.broadcastLocked()
}

// Close closes every connection, including any still leased, and fails
// further Takes. All connections are closed even if some fail; the
// failures are joined.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("sqlitepool: close: pool %w", sqliter.ErrClosed)
	}
	p.closed = true
	instances := p.instances
	p.instances = nil
	p.idle = nil
	p.broadcastLocked()
	p.mu.Unlock()

	var errs []error
	for _, instance := range instances {
		if err := instance.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		p.logger.Error("sqlite pool close error",
			"path", p.manager.Path(),
			"error", err,
		)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.manager.Path(), err)
	}
	p.logger.Info("sqlite pool closed", "path", p.manager.Path())
	return nil
}

// Stats describes the pool's current state.
type Stats struct {
	Capacity  int
	Instances int
	Idle      int
	InUse     int

	// Cache sums the statement cache statistics of every instance.
	Cache lru.Stats
}

// Stats returns a snapshot of the pool's state.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		Capacity:  p.capacity,
		Instances: len(p.instances),
		Idle:      len(p.idle),
		InUse:     len(p.instances) - len(p.idle),
	}
	for _, instance := range p.instances {
		cache := instance.CacheStats()
		stats.Cache.Hits += cache.Hits
		stats.Cache.Misses += cache.Misses
		stats.Cache.Evictions += cache.Evictions
		stats.Cache.Size += cache.Size
		stats.Cache.MaxSize += cache.MaxSize
	}
	return stats
}

// withInstance runs fn on a leased instance. fn receives the lease
// context for nested calls.
func (p *Pool) withInstance(ctx context.Context, fn func(ctx context.Context, instance *Instance) error) error {
	ctx, instance, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(ctx)
	return fn(ctx, instance)
}

// Exec runs a script of one or more statements.
func (p *Pool) Exec(ctx context.Context, sql string) error {
	return p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		return instance.Exec(sql)
	})
}

// Execute runs sql, which must not return rows, after bind has set its
// parameters. bind may be nil.
func (p *Pool) Execute(ctx context.Context, sql string, bind func(*Statement) error) error {
	return p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		return instance.Execute(sql, bind)
	})
}

// Insert runs an INSERT and returns the new rowid, or -1 if no row was
// inserted.
func (p *Pool) Insert(ctx context.Context, sql string, bind func(*Statement) error) (int64, error) {
	rowID := int64(-1)
	err := p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		var err error
		rowID, err = instance.Insert(sql, bind)
		return err
	})
	return rowID, err
}

// UpdateDelete runs an UPDATE or DELETE and returns the number of
// changed rows.
func (p *Pool) UpdateDelete(ctx context.Context, sql string, bind func(*Statement) error) (int, error) {
	var changed int
	err := p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		var err error
		changed, err = instance.UpdateDelete(sql, bind)
		return err
	})
	return changed, err
}

// Query runs sql and hands the cursor to fn.
func (p *Pool) Query(ctx context.Context, sql string, bind func(*Statement) error, fn func(cursor sqliter.Cursor) error) error {
	return p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		return instance.Query(sql, bind, fn)
	})
}

// LongForQuery returns the first column of the first row of sql.
func (p *Pool) LongForQuery(ctx context.Context, sql string) (int64, error) {
	var value int64
	err := p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		var err error
		value, err = instance.LongForQuery(sql)
		return err
	})
	return value, err
}

// StringForQuery returns the first column of the first row of sql.
func (p *Pool) StringForQuery(ctx context.Context, sql string) (string, error) {
	var value string
	err := p.withInstance(ctx, func(_ context.Context, instance *Instance) error {
		var err error
		value, err = instance.StringForQuery(sql)
		return err
	})
	return value, err
}

// Transaction runs fn inside a transaction. fn receives the lease
// context: pool calls made with it run on the same connection and
// inside the transaction. The transaction commits when fn returns nil.
func (p *Pool) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.withInstance(ctx, func(ctx context.Context, instance *Instance) error {
		return instance.Transaction(func(*Instance) error {
			return fn(ctx)
		})
	})
}
