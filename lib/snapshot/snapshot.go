// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/sqliter/lib/clock"
	"github.com/bureau-foundation/sqliter/lib/codec"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// magic opens every snapshot file.
var magic = []byte("SQLSNAP\x00")

// FormatVersion is the snapshot layout written by Create.
const FormatVersion = 1

// ErrInvalidSnapshot is matched by every error about a malformed or
// corrupt snapshot file.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Manifest is the header of a snapshot file. It is followed by the
// database image, compressed as Compression says.
type Manifest struct {
	Format        int         `cbor:"format"`
	Compression   Compression `cbor:"compression"`
	Source        string      `cbor:"source,omitempty"`
	SchemaVersion int         `cbor:"schema_version"`
	JournalMode   string      `cbor:"journal_mode"`
	Created       int64       `cbor:"created"`
	Size          int64       `cbor:"size"`
	Checksum      []byte      `cbor:"blake3"`
}

// Options configures Create.
type Options struct {
	Compression Compression

	// Source is recorded in the manifest for display.
	Source string

	// TempDir holds the intermediate database image. Defaults to
	// os.TempDir().
	TempDir string

	// Clock stamps the manifest. Defaults to clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Create writes a consistent copy of the database open on conn to w.
// The copy is taken with VACUUM INTO, so it is compact and readers and
// writers on other connections are not blocked for longer than the
// engine's own read transaction. conn must not be in a transaction.
func Create(conn sqliter.Connection, w io.Writer, options Options) (*Manifest, error) {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if conn.InTransaction() {
		return nil, fmt.Errorf("snapshot: %w", sqliter.ErrTransactionActive)
	}

	schemaVersion, err := sqliter.Version(conn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading schema version: %w", err)
	}
	journalMode, err := sqliter.JournalModeOf(conn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading journal mode: %w", err)
	}

	directory, err := os.MkdirTemp(options.TempDir, "sqliter-snapshot-")
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer os.RemoveAll(directory)

	image := filepath.Join(directory, "image.db")
	err = sqliter.WithStatement(conn, "VACUUM INTO ?", func(stmt sqliter.Statement) error {
		if err := stmt.BindText(1, image); err != nil {
			return err
		}
		return stmt.Execute()
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: copying database: %w", err)
	}

	size, checksum, err := hashFile(image)
	if err != nil {
		return nil, err
	}
	manifest := &Manifest{
		Format:        FormatVersion,
		Compression:   options.Compression,
		Source:        options.Source,
		SchemaVersion: schemaVersion,
		JournalMode:   string(journalMode),
		Created:       options.Clock.Now().Unix(),
		Size:          size,
		Checksum:      checksum,
	}

	counter := &countingWriter{w: w}
	if err := writeSnapshot(counter, manifest, image); err != nil {
		return nil, err
	}
	options.Logger.Info("snapshot created",
		"source", options.Source,
		"schema_version", schemaVersion,
		"compression", options.Compression.String(),
		"database_bytes", size,
		"snapshot_bytes", counter.count,
	)
	return manifest, nil
}

func writeSnapshot(w io.Writer, manifest *Manifest, image string) error {
	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("snapshot: writing header: %w", err)
	}
	if err := codec.NewEncoder(w).Encode(manifest); err != nil {
		return fmt.Errorf("snapshot: writing manifest: %w", err)
	}

	file, err := os.Open(image)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer file.Close()

	compressor, err := manifest.Compression.compressor(w)
	if err != nil {
		return err
	}
	if _, err := io.Copy(compressor, file); err != nil {
		compressor.Close()
		return fmt.Errorf("snapshot: compressing database: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("snapshot: compressing database: %w", err)
	}
	return nil
}

func hashFile(path string) (int64, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("snapshot: %w", err)
	}
	defer file.Close()

	hasher := blake3.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return 0, nil, fmt.Errorf("snapshot: hashing database: %w", err)
	}
	return size, hasher.Sum(nil), nil
}

// ReadManifest reads the header of a snapshot. The returned reader
// yields the compressed database image that follows it.
func ReadManifest(r io.Reader) (*Manifest, io.Reader, error) {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w: reading header: %v", ErrInvalidSnapshot, err)
	}
	if !bytes.Equal(header, magic) {
		return nil, nil, fmt.Errorf("snapshot: %w: not a snapshot file", ErrInvalidSnapshot)
	}

	decoder := codec.NewDecoder(r)
	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w: decoding manifest: %v", ErrInvalidSnapshot, err)
	}
	if manifest.Format != FormatVersion {
		return nil, nil, fmt.Errorf("snapshot: %w: format %d is not supported", ErrInvalidSnapshot, manifest.Format)
	}
	return &manifest, io.MultiReader(decoder.Buffered(), r), nil
}
