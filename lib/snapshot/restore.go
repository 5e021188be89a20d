// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// SkipVerify skips the integrity check run on the restored image
	// before it replaces the target. The checksum is always verified.
	SkipVerify bool

	// EncryptionKey opens the image for the integrity check when the
	// source database was encrypted.
	EncryptionKey string

	Logger *slog.Logger
}

// Restore writes the database held in snapshot r to path. The image is
// decompressed next to path, checked against the manifest checksum and
// then renamed over path, after any journal, WAL and shared-memory
// files of the old database are removed. Nothing may have the database
// open while it is restored.
func Restore(r io.Reader, path string, options RestoreOptions) (*Manifest, error) {
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	manifest, body, err := ReadManifest(r)
	if err != nil {
		return nil, err
	}

	directory, name := filepath.Dir(path), filepath.Base(path)
	temporary, err := os.CreateTemp(directory, name+".restore-")
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	temporaryPath := temporary.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(temporaryPath)
		}
	}()

	err = decompressInto(temporary, body, manifest)
	if closeErr := temporary.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("snapshot: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}

	if !options.SkipVerify {
		if err := verify(temporaryPath, options); err != nil {
			return nil, err
		}
	}

	if err := sqliter.DeleteDatabase(name, directory); err != nil {
		return nil, fmt.Errorf("snapshot: removing old database: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	committed = true

	options.Logger.Info("snapshot restored",
		"path", path,
		"source", manifest.Source,
		"schema_version", manifest.SchemaVersion,
		"database_bytes", manifest.Size,
	)
	return manifest, nil
}

func decompressInto(w io.Writer, body io.Reader, manifest *Manifest) error {
	reader, release, err := manifest.Compression.decompressor(body)
	if err != nil {
		return err
	}
	defer release()

	hasher := blake3.New()
	// One byte past the recorded size is enough to detect a longer
	// image without reading an unbounded stream.
	size, err := io.Copy(io.MultiWriter(w, hasher), io.LimitReader(reader, manifest.Size+1))
	if err != nil {
		return fmt.Errorf("snapshot: %w: decompressing: %v", ErrInvalidSnapshot, err)
	}
	if size != manifest.Size {
		return fmt.Errorf("snapshot: %w: image is %d bytes, manifest says %d", ErrInvalidSnapshot, size, manifest.Size)
	}
	if !bytes.Equal(hasher.Sum(nil), manifest.Checksum) {
		return fmt.Errorf("snapshot: %w: checksum mismatch", ErrInvalidSnapshot)
	}
	return nil
}

// verify runs the engine's quick integrity check on the image at path.
func verify(path string, options RestoreOptions) (err error) {
	manager, err := sqliter.NewManager(sqliter.Config{
		Name:          filepath.Base(path),
		BasePath:      filepath.Dir(path),
		Version:       sqliter.NoVersionCheck,
		JournalMode:   sqliter.JournalDelete,
		EncryptionKey: options.EncryptionKey,
		Logger:        options.Logger,
	})
	if err != nil {
		return fmt.Errorf("snapshot: verifying: %w", err)
	}
	conn, err := manager.OpenExclusive()
	if err != nil {
		return fmt.Errorf("snapshot: verifying: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("snapshot: verifying: %w", closeErr)
		}
	}()

	result, err := sqliter.StringForQuery(conn, "PRAGMA quick_check")
	if err != nil {
		return fmt.Errorf("snapshot: verifying: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("snapshot: %w: integrity check: %s", ErrInvalidSnapshot, result)
	}
	return nil
}
