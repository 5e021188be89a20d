// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxKeySize bounds how much is read from a key source.
const maxKeySize = 64 << 10

// ReadFile reads key material from path, or from standard input when
// path is "-". Surrounding whitespace is dropped and every heap copy is
// zeroed before returning.
func ReadFile(path string) (*Buffer, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	defer file.Close()
	return Read(file)
}

// Read reads key material from reader. See ReadFile.
func Read(reader io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxKeySize+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("secret: reading key: %w", err)
	}
	if len(data) > maxKeySize {
		return nil, fmt.Errorf("secret: key exceeds %d bytes", maxKeySize)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("secret: key is empty")
	}
	return FromBytes(trimmed)
}
