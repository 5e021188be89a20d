// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed stores database cipher keys as age-encrypted files.
//
// [SealKey] writes an armored age file for one or more x25519
// recipients. [OpenKeyFile] decrypts it with an identity file and
// returns the key in a [secret.Buffer], which the sqliter command then
// hands to PRAGMA key. Decrypted material never sits in an ordinary
// heap slice longer than one call.
package sealed
