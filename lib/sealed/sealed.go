// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/sqliter/lib/secret"
)

// Identity is an age x25519 identity. The private half stays in a
// secret.Buffer; the recipient string is safe to share.
type Identity struct {
	PrivateKey *secret.Buffer
	Recipient  string
}

// Close releases the private key.
func (i *Identity) Close() error {
	if i.PrivateKey != nil {
		return i.PrivateKey.Close()
	}
	return nil
}

// GenerateIdentity creates a new x25519 identity.
func GenerateIdentity() (*Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	// The string form returned by age is unavoidably on the heap; the
	// buffer is the copy that outlives this call.
	privateKey, err := secret.FromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}
	return &Identity{PrivateKey: privateKey, Recipient: identity.Recipient().String()}, nil
}

// SealKey encrypts key to recipients and writes it to w as an
// ASCII-armored age file.
func SealKey(w io.Writer, key *secret.Buffer, recipients []string) error {
	if len(recipients) == 0 {
		return errors.New("sealed: at least one recipient is required")
	}
	parsed := make([]age.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		r, err := age.ParseX25519Recipient(recipient)
		if err != nil {
			return fmt.Errorf("sealed: recipient %q: %w", recipient, err)
		}
		parsed = append(parsed, r)
	}

	armored := armor.NewWriter(w)
	encrypted, err := age.Encrypt(armored, parsed...)
	if err != nil {
		return fmt.Errorf("sealed: starting encryption: %w", err)
	}
	if _, err := encrypted.Write(key.Bytes()); err != nil {
		return fmt.Errorf("sealed: encrypting key: %w", err)
	}
	if err := encrypted.Close(); err != nil {
		return fmt.Errorf("sealed: finishing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return fmt.Errorf("sealed: finishing armor: %w", err)
	}
	return nil
}

// OpenKey decrypts an age file, armored or binary, with the identities
// in identityFile and returns the key it holds. identityFile uses the
// age identity file format: one AGE-SECRET-KEY per line, # comments
// allowed.
func OpenKey(r io.Reader, identityFile *secret.Buffer) (*secret.Buffer, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identityFile.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identity: %w", err)
	}

	buffered := bufio.NewReader(r)
	var source io.Reader = buffered
	if start, _ := buffered.Peek(len(armor.Header)); string(start) == armor.Header {
		source = armor.NewReader(buffered)
	}

	decrypted, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting key: %w", err)
	}
	key, err := secret.Read(decrypted)
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	return key, nil
}

// OpenKeyFile decrypts the key file at keyPath with the identity file
// at identityPath. Either path may be "-" for standard input, but not
// both.
func OpenKeyFile(keyPath, identityPath string) (*secret.Buffer, error) {
	if keyPath == "-" && identityPath == "-" {
		return nil, errors.New("sealed: key and identity cannot both come from standard input")
	}

	identity, err := secret.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading identity: %w", err)
	}
	defer identity.Close()

	var source io.Reader = os.Stdin
	if keyPath != "-" {
		file, err := os.Open(keyPath)
		if err != nil {
			return nil, fmt.Errorf("sealed: %w", err)
		}
		defer file.Close()
		source = file
	}
	return OpenKey(source, identity)
}

// ValidateRecipient reports whether recipient is an age x25519
// recipient string.
func ValidateRecipient(recipient string) error {
	if _, err := age.ParseX25519Recipient(recipient); err != nil {
		return fmt.Errorf("sealed: invalid recipient: %w", err)
	}
	return nil
}
