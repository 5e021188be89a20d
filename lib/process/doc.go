// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint error handler. [Fatal]
// is the one place where main() writes to stderr directly, before or
// after the structured logger exists. Commands that need a specific
// exit status return an [ExitError].
package process
