// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/process"
)

// workspace is a database configuration with its schema directory.
type workspace struct {
	directory string
	config    string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	directory := t.TempDir()
	schema := filepath.Join(directory, "schema")
	if err := os.Mkdir(schema, 0755); err != nil {
		t.Fatal(err)
	}
	scripts := map[string]string{
		"1.sql": "CREATE TABLE note (id INTEGER PRIMARY KEY, owner TEXT NOT NULL, body TEXT);",
		"2.sql": "CREATE INDEX note_owner ON note (owner);",
	}
	for name, content := range scripts {
		if err := os.WriteFile(filepath.Join(schema, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	config := filepath.Join(directory, "app.yaml")
	content := `
database:
  name: notes.db
  base_path: ${CONFIG_DIR}/data
  busy_timeout: 1s
schema: schema
pool:
  instances: 2
`
	if err := os.Mkdir(filepath.Join(directory, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return &workspace{directory: directory, config: config}
}

func (w *workspace) databasePath() string {
	return filepath.Join(w.directory, "data", "notes.db")
}

// run executes the command tree and returns what it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Root(strings.NewReader(stdin), &stdout, &stderr).Execute(context.Background(), args)
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	output, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("sqliter %s: %v", strings.Join(args, " "), err)
	}
	return output
}

func queryJSON(t *testing.T, args ...string) cli.ResultSet {
	t.Helper()
	output := mustRun(t, append([]string{"query", "--format", "json"}, args...)...)
	var result cli.ResultSet
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("query output is not JSON: %v\n%s", err, output)
	}
	return result
}

func TestMigrateExecQuery(t *testing.T) {
	w := newWorkspace(t)

	output := mustRun(t, "migrate", "--config", w.config, "--version", "1")
	if !strings.Contains(output, "schema version 1") {
		t.Errorf("migrate output = %q", output)
	}
	output = mustRun(t, "migrate", "--config", w.config)
	if !strings.Contains(output, "schema version 2") {
		t.Errorf("migrate output = %q", output)
	}

	mustRun(t, "exec", "--config", w.config,
		"INSERT INTO note (owner, body) VALUES ('alice', 'first');",
		"INSERT INTO note (owner, body) VALUES ('bob', NULL);")

	result := queryJSON(t, "--config", w.config, "SELECT owner, body FROM note WHERE owner = ?", "alice")
	if len(result.Rows) != 1 || result.Rows[0][1] != "first" {
		t.Errorf("query result = %+v", result)
	}
	result = queryJSON(t, "--config", w.config, "SELECT body FROM note WHERE owner = 'bob'")
	if len(result.Rows) != 1 || result.Rows[0][0] != nil {
		t.Errorf("NULL should come back as null: %+v", result)
	}
}

func TestMigrate_RefusesDowngrade(t *testing.T) {
	w := newWorkspace(t)
	mustRun(t, "migrate", "--config", w.config)

	_, err := run(t, "", "migrate", "--config", w.config, "--version", "1")
	if err == nil || !strings.Contains(err.Error(), "downgrade") {
		t.Fatalf("expected a downgrade error, got %v", err)
	}
}

func TestExec_AllOrNothing(t *testing.T) {
	w := newWorkspace(t)
	mustRun(t, "migrate", "--config", w.config)

	_, err := run(t, "", "exec", "--config", w.config, "--file", "-")
	if err == nil {
		t.Fatal("expected an error for an empty script")
	}

	script := "INSERT INTO note (owner) VALUES ('carol'); INSERT INTO note (owner) VALUES (NULL);"
	if _, err := run(t, script, "exec", "--config", w.config, "--file", "-"); err == nil {
		t.Fatal("expected the NOT NULL violation to fail the script")
	}
	result := queryJSON(t, "--config", w.config, "SELECT count(*) FROM note")
	if count, _ := result.Rows[0][0].(float64); count != 0 {
		t.Errorf("failed script left %v rows behind", result.Rows[0][0])
	}
}

func TestSnapshotRestore(t *testing.T) {
	w := newWorkspace(t)
	mustRun(t, "migrate", "--config", w.config)
	mustRun(t, "exec", "--config", w.config, "INSERT INTO note (owner, body) VALUES ('dave', 'kept')")

	snapshotPath := filepath.Join(w.directory, "notes.snap")
	mustRun(t, "snapshot", "--config", w.config, "--out", snapshotPath, "--compression", "lz4")

	restored := filepath.Join(t.TempDir(), "restored.db")
	output := mustRun(t, "restore", "--in", snapshotPath, "--to", restored)
	if !strings.Contains(output, "restored schema version 2") {
		t.Errorf("restore output = %q", output)
	}

	// Restore over the configured database after changing it.
	mustRun(t, "exec", "--config", w.config, "DELETE FROM note")
	mustRun(t, "restore", "--config", w.config, "--in", snapshotPath)
	result := queryJSON(t, "--config", w.config, "SELECT body FROM note")
	if len(result.Rows) != 1 || result.Rows[0][0] != "kept" {
		t.Errorf("restored rows = %+v", result.Rows)
	}
}

func TestDelete(t *testing.T) {
	w := newWorkspace(t)
	mustRun(t, "migrate", "--config", w.config)

	_, err := run(t, "", "delete", "--config", w.config)
	var exitError *process.ExitError
	if !errors.As(err, &exitError) || exitError.Code != 2 {
		t.Fatalf("expected exit code 2 without --yes, got %v", err)
	}
	if _, err := os.Stat(w.databasePath()); err != nil {
		t.Fatalf("database should survive an unconfirmed delete: %v", err)
	}

	mustRun(t, "delete", "--config", w.config, "--yes")
	if _, err := os.Stat(w.databasePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("database still exists after delete: %v", err)
	}
}

func TestKeyFiles(t *testing.T) {
	w := newWorkspace(t)
	identityPath := filepath.Join(w.directory, "identity.txt")
	keyPath := filepath.Join(w.directory, "db.key.age")

	recipient := strings.TrimSpace(mustRun(t, "key", "identity", "--out", identityPath))
	if !strings.HasPrefix(recipient, "age1") {
		t.Fatalf("key identity printed %q", recipient)
	}
	info, err := os.Stat(identityPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("identity file mode = %v, want 0600", info.Mode().Perm())
	}

	if _, err := run(t, "database-cipher-key\n", "key", "seal", "--recipient", recipient, "--out", keyPath); err != nil {
		t.Fatalf("key seal: %v", err)
	}
	sealedKey, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(sealedKey, []byte("database-cipher-key")) {
		t.Fatal("sealed key file contains the plaintext")
	}

	// The key is decrypted and handed to the connection on open.
	mustRun(t, "migrate", "--config", w.config, "--key-file", keyPath, "--identity", identityPath)

	_, err = run(t, "", "migrate", "--config", w.config, "--key-file", keyPath, "--identity", keyPath)
	if err == nil {
		t.Fatal("expected a bad identity file to fail the open")
	}
	_, err = run(t, "", "migrate", "--config", w.config, "--key-file", keyPath)
	if err == nil || !strings.Contains(err.Error(), "identity_file") {
		t.Fatalf("expected a validation error for a key without an identity, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	output := mustRun(t, "version", "--json")
	var build struct {
		Version string `json:"version"`
		Engine  string `json:"engine"`
	}
	if err := json.Unmarshal([]byte(output), &build); err != nil {
		t.Fatalf("version --json output: %v\n%s", err, output)
	}
	if build.Engine == "" || !strings.HasPrefix(build.Engine, "3.") {
		t.Errorf("engine version = %q", build.Engine)
	}

	output = mustRun(t, "version")
	if !strings.Contains(output, "Engine: 3.") {
		t.Errorf("version output = %q", output)
	}
}

func TestMissingConfig(t *testing.T) {
	t.Setenv("SQLITER_CONFIG", "")
	_, err := run(t, "", "query", "SELECT 1")
	if err == nil || !strings.Contains(err.Error(), "SQLITER_CONFIG") {
		t.Fatalf("expected an error naming SQLITER_CONFIG, got %v", err)
	}
}
