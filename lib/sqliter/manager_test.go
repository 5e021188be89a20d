// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter_test

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bureau-foundation/sqliter/lib/native"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
	"github.com/bureau-foundation/sqliter/lib/testutil"
)

// migrationCounts records how often each migration callback ran.
type migrationCounts struct {
	creates  atomic.Int32
	upgrades atomic.Int32
}

func versionedConfig(name, basePath string, version int, counts *migrationCounts) sqliter.Config {
	return sqliter.Config{
		Name:     name,
		BasePath: basePath,
		Version:  version,
		Create: func(conn sqliter.Connection) error {
			counts.creates.Add(1)
			return conn.Exec(itemSchema)
		},
		Upgrade: func(conn sqliter.Connection, oldVersion, newVersion int) error {
			counts.upgrades.Add(1)
			return conn.Exec("ALTER TABLE item ADD COLUMN extra TEXT")
		},
	}
}

func storedVersion(t *testing.T, conn sqliter.Connection) int {
	t.Helper()
	version, err := sqliter.Version(conn)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	return version
}

func TestMigrationMonotonicity(t *testing.T) {
	name, basePath := testutil.TempDatabase(t)
	counts := &migrationCounts{}

	conn := openExclusive(t, openManager(t, versionedConfig(name, basePath, 1, counts)))
	if got := storedVersion(t, conn); got != 1 {
		t.Errorf("version after create = %d, want 1", got)
	}
	insertItem(t, conn, 1, "v1")
	conn.Close()

	conn = openExclusive(t, openManager(t, versionedConfig(name, basePath, 2, counts)))
	if got := storedVersion(t, conn); got != 2 {
		t.Errorf("version after upgrade = %d, want 2", got)
	}
	conn.Close()

	// A second manager at the same version migrates nothing.
	conn = openExclusive(t, openManager(t, versionedConfig(name, basePath, 2, counts)))
	conn.Close()

	if creates := counts.creates.Load(); creates != 1 {
		t.Errorf("Create ran %d times, want 1", creates)
	}
	if upgrades := counts.upgrades.Load(); upgrades != 1 {
		t.Errorf("Upgrade ran %d times, want 1", upgrades)
	}
}

func TestMigrationRunsOncePerManager(t *testing.T) {
	counts := &migrationCounts{}
	name, basePath := testutil.TempDatabase(t)
	manager := openManager(t, versionedConfig(name, basePath, 1, counts))

	if manager.Initialized() {
		t.Fatal("Initialized before any connection was opened")
	}
	for range 3 {
		openExclusive(t, manager)
	}
	if !manager.Initialized() {
		t.Error("Initialized = false after opening connections")
	}
	if creates := counts.creates.Load(); creates != 1 {
		t.Errorf("Create ran %d times, want 1", creates)
	}
}

func TestDowngradeRejected(t *testing.T) {
	name, basePath := testutil.TempDatabase(t)
	counts := &migrationCounts{}

	conn := openExclusive(t, openManager(t, versionedConfig(name, basePath, 2, counts)))
	insertItem(t, conn, 1, "kept")
	conn.Close()

	var guardStored, guardConfigured int
	config := versionedConfig(name, basePath, 1, counts)
	config.DowngradeGuard = func(conn sqliter.Connection, stored, configured int) error {
		guardStored, guardConfigured = stored, configured
		return nil
	}
	closedHooks := 0
	config.OnConnectionClosed = func(sqliter.Connection) { closedHooks++ }

	_, err := openManager(t, config).OpenExclusive()
	if !errors.Is(err, sqliter.ErrDowngrade) {
		t.Fatalf("open at lower version = %v, want ErrDowngrade", err)
	}
	if !errors.Is(err, sqliter.ErrConfiguration) {
		t.Errorf("downgrade error does not match ErrConfiguration")
	}
	if !strings.Contains(err.Error(), "database version 2 newer than config version 1") {
		t.Errorf("error message = %q", err)
	}
	if guardStored != 2 || guardConfigured != 1 {
		t.Errorf("DowngradeGuard saw (%d, %d), want (2, 1)", guardStored, guardConfigured)
	}
	if closedHooks != 1 {
		t.Errorf("connection closed hook ran %d times, want 1", closedHooks)
	}

	// Nothing was written: the version and the data are unchanged.
	conn = openExclusive(t, openManager(t, versionedConfig(name, basePath, sqliter.NoVersionCheck, counts)))
	if got := storedVersion(t, conn); got != 2 {
		t.Errorf("stored version = %d, want 2", got)
	}
	if count := countItems(t, conn); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestFailedCreateRollsBack(t *testing.T) {
	name, basePath := testutil.TempDatabase(t)
	failure := errors.New("create failed")
	config := sqliter.Config{
		Name:     name,
		BasePath: basePath,
		Version:  3,
		Create: func(conn sqliter.Connection) error {
			if err := conn.Exec(itemSchema); err != nil {
				return err
			}
			return failure
		},
	}

	_, err := openManager(t, config).OpenExclusive()
	if !sqliter.IsMigration(err) {
		t.Fatalf("open = %v, want a migration error", err)
	}
	if !errors.Is(err, failure) {
		t.Errorf("migration error does not wrap the callback error")
	}
	var migrationError *sqliter.MigrationError
	if errors.As(err, &migrationError) && (migrationError.From != 0 || migrationError.To != 3) {
		t.Errorf("MigrationError = %+v, want From 0 To 3", migrationError)
	}

	config.Version = sqliter.NoVersionCheck
	conn := openExclusive(t, openManager(t, config))
	if got := storedVersion(t, conn); got != 0 {
		t.Errorf("stored version = %d, want 0", got)
	}
	if _, err := sqliter.LongForQuery(conn, "SELECT count(*) FROM item"); err == nil {
		t.Error("item table exists after rolled back create")
	}
}

func TestFailedUpgradeKeepsOldVersion(t *testing.T) {
	name, basePath := testutil.TempDatabase(t)
	counts := &migrationCounts{}
	openExclusive(t, openManager(t, versionedConfig(name, basePath, 1, counts))).Close()

	config := versionedConfig(name, basePath, 2, counts)
	config.Upgrade = func(conn sqliter.Connection, oldVersion, newVersion int) error {
		return conn.Exec("THIS IS NOT SQL")
	}
	_, err := openManager(t, config).OpenExclusive()
	var migrationError *sqliter.MigrationError
	if !errors.As(err, &migrationError) || migrationError.From != 1 || migrationError.To != 2 {
		t.Fatalf("open = %v, want MigrationError from 1 to 2", err)
	}

	conn := openExclusive(t, openManager(t, versionedConfig(name, basePath, sqliter.NoVersionCheck, counts)))
	if got := storedVersion(t, conn); got != 1 {
		t.Errorf("stored version = %d, want 1", got)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	for _, test := range []struct {
		name   string
		config sqliter.Config
	}{
		{"path separator in name", sqliter.Config{Name: "a/b.db", Version: 1}},
		{"parent directory name", sqliter.Config{Name: "..", Version: 1}},
		{"current directory name", sqliter.Config{Name: ".", Version: 1}},
		{"zero version", sqliter.Config{Name: "a.db", Version: 0}},
		{"unknown journal mode", sqliter.Config{Name: "a.db", Version: 1, JournalMode: "TRUNCATE"}},
		{"unknown synchronous", sqliter.Config{Name: "a.db", Version: 1, Synchronous: "SOMETIMES"}},
		{"page size not a power of two", sqliter.Config{Name: "a.db", Version: 1, PageSize: 1000}},
		{"empty lookaside", sqliter.Config{Name: "a.db", Version: 1, Lookaside: &sqliter.Lookaside{}}},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := sqliter.NewManager(test.config)
			if !errors.Is(err, sqliter.ErrConfiguration) {
				t.Errorf("NewManager = %v, want a configuration error", err)
			}
		})
	}

	_, err := sqliter.NewManager(sqliter.Config{Name: "x/y", Version: 1})
	if !errors.Is(err, sqliter.ErrInvalidName) {
		t.Errorf("name with separator = %v, want ErrInvalidName", err)
	}
}

func TestLookasideFailureFailsOpen(t *testing.T) {
	config := testConfig(t)
	config.Lookaside = &sqliter.Lookaside{SlotSize: 128, SlotCount: 64}
	closed := false
	config.OnConnectionClosed = func(sqliter.Connection) { closed = true }

	_, err := openManager(t, config).OpenExclusive()
	if !errors.Is(err, sqliter.ErrConfiguration) {
		t.Fatalf("open with lookaside = %v, want a configuration error", err)
	}
	if !closed {
		t.Error("connection was not closed after the failed open")
	}
}

func TestPragmasApplied(t *testing.T) {
	config := testConfig(t)
	config.ForeignKeyConstraints = true
	config.RecursiveTriggers = true
	config.Synchronous = sqliter.SynchronousFull
	config.JournalMode = sqliter.JournalDelete
	config.PageSize = 8192
	conn := openExclusive(t, openManager(t, config))

	for _, test := range []struct {
		pragma string
		want   int64
	}{
		{"PRAGMA foreign_keys", 1},
		{"PRAGMA recursive_triggers", 1},
		{"PRAGMA synchronous", 2},
		{"PRAGMA page_size", 8192},
	} {
		got, err := sqliter.LongForQuery(conn, test.pragma)
		if err != nil {
			t.Errorf("%s: %v", test.pragma, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s = %d, want %d", test.pragma, got, test.want)
		}
	}
	mode, err := sqliter.JournalModeOf(conn)
	if err != nil || mode != sqliter.JournalDelete {
		t.Errorf("journal mode = %q, %v; want DELETE", mode, err)
	}
}

// recordingConn remembers every statement prepared on it.
type recordingConn struct {
	native.Conn
	mu       *sync.Mutex
	prepared *[]string
}

func (c *recordingConn) Prepare(sql string) (native.Stmt, error) {
	c.mu.Lock()
	*c.prepared = append(*c.prepared, sql)
	c.mu.Unlock()
	return c.Conn.Prepare(sql)
}

// keyPragmas opens a connection with the given keys and returns the
// key and rekey pragmas it issued, in order.
func keyPragmas(t *testing.T, key, rekey string) []string {
	t.Helper()
	var (
		mu       sync.Mutex
		prepared []string
	)
	config := testConfig(t)
	config.EncryptionKey = key
	config.Rekey = rekey
	config.Open = func(path string) (native.Conn, error) {
		handle, err := native.Open(path)
		if err != nil {
			return nil, err
		}
		return &recordingConn{Conn: handle, mu: &mu, prepared: &prepared}, nil
	}
	openExclusive(t, openManager(t, config))

	mu.Lock()
	defer mu.Unlock()
	return slices.DeleteFunc(slices.Clone(prepared), func(sql string) bool {
		return !strings.HasPrefix(sql, "PRAGMA key") && !strings.HasPrefix(sql, "PRAGMA rekey")
	})
}

func TestKeyPragmas(t *testing.T) {
	for _, test := range []struct {
		name       string
		key, rekey string
		want       []string
	}{
		{"none", "", "", nil},
		{"key", "secret", "", []string{"PRAGMA key = 'secret'"}},
		{"rekey only keys with the new key", "", "newsecret", []string{"PRAGMA key = 'newsecret'"}},
		{"key then rekey", "secret", "newsecret", []string{"PRAGMA key = 'secret'", "PRAGMA rekey = 'newsecret'"}},
		{"quoted", "it's", "", []string{"PRAGMA key = 'it''s'"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := keyPragmas(t, test.key, test.rekey); !slices.Equal(got, test.want) {
				t.Errorf("issued %q, want %q", got, test.want)
			}
		})
	}
}

func TestDefaultJournalModeIsWAL(t *testing.T) {
	conn := openExclusive(t, openManager(t, testConfig(t)))
	mode, err := sqliter.JournalModeOf(conn)
	if err != nil || mode != sqliter.JournalWAL {
		t.Errorf("journal mode = %q, %v; want WAL", mode, err)
	}
}

func TestLifecycleHooks(t *testing.T) {
	config := testConfig(t)
	var opened, closed []string
	config.OnConnectionOpened = func(conn sqliter.Connection) { opened = append(opened, conn.ID()) }
	config.OnConnectionClosed = func(conn sqliter.Connection) { closed = append(closed, conn.ID()) }
	manager := openManager(t, config)

	conn := openExclusive(t, manager)
	synchronized, err := manager.OpenSynchronized()
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	synchronized.Close()
	synchronized.Close()

	if len(opened) != 2 || opened[0] != conn.ID() || opened[1] != synchronized.ID() {
		t.Errorf("opened hooks = %v", opened)
	}
	if len(closed) != 2 || closed[0] != conn.ID() || closed[1] != synchronized.ID() {
		t.Errorf("closed hooks = %v, want one per connection", closed)
	}
}

func TestInMemoryDatabases(t *testing.T) {
	counts := &migrationCounts{}
	config := sqliter.Config{
		InMemory: true,
		Version:  1,
		Create: func(conn sqliter.Connection) error {
			counts.creates.Add(1)
			return conn.Exec(itemSchema)
		},
	}
	manager := openManager(t, config)
	if manager.Path() != ":memory:" {
		t.Errorf("Path = %q, want :memory:", manager.Path())
	}

	// Every anonymous in-memory connection is its own database, so each
	// one is created from scratch.
	openExclusive(t, manager)
	openExclusive(t, manager)
	if manager.Initialized() {
		t.Error("anonymous in-memory manager marked initialized")
	}
	if creates := counts.creates.Load(); creates != 2 {
		t.Errorf("Create ran %d times, want 2", creates)
	}

	config.Name = testutil.UniqueID("shared")
	named := openManager(t, config)
	if !strings.HasPrefix(named.Path(), "file:"+config.Name) {
		t.Errorf("named in-memory Path = %q", named.Path())
	}
}

func TestNamedInMemoryEscapesName(t *testing.T) {
	name := testutil.UniqueID("odd?mode=rw#frag%20")
	config := sqliter.Config{Name: name, InMemory: true, Version: 1, Create: func(conn sqliter.Connection) error {
		return conn.Exec(itemSchema)
	}}
	manager := openManager(t, config)

	path := manager.Path()
	if strings.Count(path, "?") != 1 || strings.Contains(path, "#") || !strings.HasSuffix(path, "?mode=memory&cache=shared") {
		t.Fatalf("Path = %q, want the name escaped ahead of a single query string", path)
	}

	// Two connections to the escaped name share one database.
	first := openExclusive(t, manager)
	insertItem(t, first, 7, "shared")
	second := openExclusive(t, manager)
	count, err := sqliter.LongForQuery(second, "SELECT count(*) FROM item")
	if err != nil || count != 1 {
		t.Errorf("second connection sees %d rows, %v; want 1", count, err)
	}
}

func TestDatabasePath(t *testing.T) {
	path, err := sqliter.DatabasePath("app.db", "/var/lib/app")
	if err != nil || path != "/var/lib/app/app.db" {
		t.Errorf("DatabasePath = %q, %v", path, err)
	}
	if _, err := sqliter.DatabasePath("", "/var/lib/app"); !errors.Is(err, sqliter.ErrConfiguration) {
		t.Errorf("empty name = %v, want a configuration error", err)
	}
}
