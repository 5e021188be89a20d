// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// sidecarSuffixes are the files the engine keeps next to a database.
// Master journals ("-mj" plus a random suffix) are matched by prefix.
var sidecarSuffixes = []string{"-journal", "-shm", "-wal"}

const masterJournalInfix = "-mj"

// DatabasePath returns the on-disk path for database name under
// basePath. An empty basePath resolves to the user's home directory,
// or the working directory when no home directory is known.
func DatabasePath(name, basePath string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if name == "" {
		return "", &ConfigurationError{Option: "name", Message: "required for an on-disk database path"}
	}
	if basePath == "" {
		var err error
		basePath, err = defaultBasePath()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(basePath, name), nil
}

// resolvePath maps a configuration to the path handed to the engine.
func resolvePath(config Config) (string, error) {
	switch {
	case config.InMemory && config.Name != "":
		return "file:" + url.PathEscape(config.Name) + "?mode=memory&cache=shared", nil
	case config.InMemory:
		return ":memory:", nil
	case config.Name == "":
		return "", nil
	default:
		return DatabasePath(config.Name, config.BasePath)
	}
}

// isEphemeral reports whether every handle opened on path is its own
// independent database.
func isEphemeral(path string) bool {
	return path == "" || path == ":memory:"
}

func defaultBasePath() (string, error) {
	if home, err := os.UserHomeDir(); err == nil {
		return home, nil
	}
	directory, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("sqliter: resolving base path: %w", err)
	}
	return directory, nil
}

// DeleteDatabase removes database name under basePath together with its
// rollback journal, WAL, shared-memory index and any master journals.
// Files that do not exist are skipped. The database must not be open.
func DeleteDatabase(name, basePath string) error {
	path, err := DatabasePath(name, basePath)
	if err != nil {
		return err
	}

	candidates := []string{path}
	for _, suffix := range sidecarSuffixes {
		candidates = append(candidates, path+suffix)
	}

	directory := filepath.Dir(path)
	entries, err := os.ReadDir(directory)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sqliter: listing %s: %w", directory, err)
	}
	masterPrefix := filepath.Base(path) + masterJournalInfix
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), masterPrefix) {
			candidates = append(candidates, filepath.Join(directory, entry.Name()))
		}
	}

	var errs []error
	for _, candidate := range candidates {
		if err := os.Remove(candidate); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sqliter: deleting database %s: %w", path, errors.Join(errs...))
	}
	return nil
}
