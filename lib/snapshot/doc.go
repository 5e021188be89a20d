// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot copies a live database into a single compressed file
// and restores it.
//
// A snapshot file is the 8-byte magic "SQLSNAP\x00", a CBOR [Manifest]
// (schema version, journal mode, image size, blake3 checksum), and the
// database image produced by VACUUM INTO, compressed with zstd, LZ4 or
// not at all.
//
//	file, _ := os.Create("app.snap")
//	manifest, err := snapshot.Create(conn, file, snapshot.Options{
//	    Compression: snapshot.CompressionZstd,
//	})
//
// [Restore] checks the checksum and runs PRAGMA quick_check before the
// restored image replaces anything on disk.
package snapshot
