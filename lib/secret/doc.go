// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps database cipher keys out of the Go heap.
//
// A [Buffer] lives in an anonymous mmap region that is mlocked against
// swap and marked MADV_DONTDUMP. Close zeroes and unmaps it. [ReadFile]
// and [Read] load a key from a file or a stream, and
// lib/sealed decrypts age key files straight into a Buffer.
package secret
