// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the shared CBOR configuration.
//
// Two things are encoded with it: the header of a snapshot file
// (lib/snapshot) and the output of "sqliter query --format cbor". The
// encoder uses Core Deterministic Encoding, so equal values produce
// equal bytes.
//
// Types that are only ever CBOR use `cbor` struct tags. Types that are
// also printed as JSON use `json` tags, which fxamacker/cbor reads when
// no `cbor` tag is present. Never put both on one field.
package codec
