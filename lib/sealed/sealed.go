// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/Gregoor/matrix-neo/lib/secret"
)

// Keypair is an age x25519 keypair whose private half lives in a
// secret.Buffer. Close releases it.
type Keypair struct {
	PrivateKey *secret.Buffer
	PublicKey  string
}

// Close zeroes the private key.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair creates a fresh keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating keypair: %w", err)
	}
	privateKey, err := secret.NewFromString(identity.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting private key: %w", err)
	}
	return &Keypair{PrivateKey: privateKey, PublicKey: identity.Recipient().String()}, nil
}

// LoadOrCreateKeypair reads the identity stored at path, or generates
// one and writes it there (mode 0600) when the file does not exist.
func LoadOrCreateKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return createKeypair(path)
	}
	if err != nil {
		return nil, fmt.Errorf("sealed: reading key file: %w", err)
	}

	privateKey, err := secret.NewFromBytes(bytes.TrimSpace(data))
	secret.Zero(data)
	if err != nil {
		return nil, fmt.Errorf("sealed: key file %s: %w", path, err)
	}
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		privateKey.Close()
		return nil, fmt.Errorf("sealed: key file %s: %w", path, err)
	}
	return &Keypair{PrivateKey: privateKey, PublicKey: identity.Recipient().String()}, nil
}

func createKeypair(path string) (*Keypair, error) {
	keypair, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		keypair.Close()
		return nil, fmt.Errorf("sealed: creating key directory: %w", err)
	}
	contents := append(bytes.Clone(keypair.PrivateKey.Bytes()), '\n')
	defer secret.Zero(contents)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		keypair.Close()
		return nil, fmt.Errorf("sealed: writing key file: %w", err)
	}
	return keypair, nil
}

// Sealer encrypts and decrypts blobs for one keypair. The parsed age
// identity is kept for the Sealer's lifetime, since parsing it per row
// would dominate the cost of writing a sync batch.
type Sealer struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewSealer parses the keypair into a Sealer. The keypair is borrowed
// and may be closed afterwards.
func NewSealer(keypair *Keypair) (*Sealer, error) {
	identity, err := age.ParseX25519Identity(keypair.PrivateKey.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing private key: %w", err)
	}
	recipient, err := age.ParseX25519Recipient(keypair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing public key: %w", err)
	}
	return &Sealer{identity: identity, recipient: recipient}, nil
}

// Seal encrypts plaintext to the sealer's own recipient.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, s.recipient)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts a blob produced by Seal.
func (s *Sealer) Open(ciphertext []byte) ([]byte, error) {
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), s.identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	return plaintext, nil
}
