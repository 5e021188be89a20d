// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a short stable digest of sql for log correlation:
// the first 8 bytes of its BLAKE3 hash, hex encoded. Logging the
// fingerprint instead of the text keeps statement contents out of
// non-verbose logs.
func Fingerprint(sql string) string {
	digest := blake3.Sum256([]byte(sql))
	return hex.EncodeToString(digest[:8])
}
