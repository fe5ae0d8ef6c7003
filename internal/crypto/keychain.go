// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto implements the key-handling contracts of the identity
// host: symmetric key wrapping for the grant hierarchy (master key →
// key-store key → drive storage keys), token half-key combination for
// connection credentials, and the sealed storage form of outbox
// credentials.
//
// Every decrypted key is returned as a SensitiveBytes and must be wiped by
// the caller; WithUnwrappedKey does the wipe on every exit path and is the
// preferred way to touch key material.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when an unwrap or open fails, typically because
// the wrong key was supplied or the blob is corrupted.
var ErrDecrypt = errors.New("decryption failed")

// SensitiveBytes holds key material that must be zeroed after use.
type SensitiveBytes []byte

// Wipe zeroes the underlying bytes in place. Safe to call repeatedly.
func (s SensitiveBytes) Wipe() {
	for i := range s {
		s[i] = 0
	}
}

// IsEmpty reports whether no key material is present.
func (s SensitiveBytes) IsEmpty() bool {
	return len(s) == 0
}

// Clone returns an independent copy so the original can be wiped without
// affecting the copy.
func (s SensitiveBytes) Clone() SensitiveBytes {
	return append(SensitiveBytes(nil), s...)
}

// GenerateKey reads n random bytes from the OS CSPRNG.
func GenerateKey(n int) (SensitiveBytes, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// WrapKey encrypts plaintext key material with kek using AES-256-GCM. A
// random 12-byte nonce is prepended to the ciphertext so UnwrapKey can
// locate it: blob = nonce ‖ ciphertext.
func WrapKey(key, kek SensitiveBytes) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, key, nil)
	return append(nonce, sealed...), nil
}

// UnwrapKey reverses WrapKey. Returns ErrDecrypt when the kek is wrong or
// the blob is corrupted (authentication-tag mismatch).
func UnwrapKey(blob []byte, kek SensitiveBytes) (SensitiveBytes, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	key, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	return key, nil
}

// WithUnwrappedKey decrypts blob with kek, runs fn with the plaintext key,
// and wipes the key on every exit path, including when fn fails. This is
// the scoped-acquisition form of the decrypt-use-wipe contract; new call
// sites should use it instead of pairing UnwrapKey with a manual Wipe.
func WithUnwrappedKey(blob []byte, kek SensitiveBytes, fn func(key SensitiveBytes) error) error {
	key, err := UnwrapKey(blob, kek)
	if err != nil {
		return err
	}
	defer key.Wipe()

	return fn(key)
}

// CombineHalfKeys XORs the two token halves into the full token key. Both
// halves must be the same length.
func CombineHalfKeys(serverHalf, remoteHalf []byte) (SensitiveBytes, error) {
	if len(serverHalf) != len(remoteHalf) || len(serverHalf) == 0 {
		return nil, errors.New("half key length mismatch")
	}

	full := make(SensitiveBytes, len(serverHalf))
	for i := range serverHalf {
		full[i] = serverHalf[i] ^ remoteHalf[i]
	}
	return full, nil
}

// HashKey returns SHA-256 of the key, used to verify a presented token key
// without storing the key itself.
func HashKey(key SensitiveBytes) []byte {
	sum := sha256.Sum256(key)
	return sum[:]
}

// VerifyKeyHash reports whether key hashes to expected.
func VerifyKeyHash(key SensitiveBytes, expected []byte) bool {
	sum := sha256.Sum256(key)
	return bytes.Equal(sum[:], expected)
}

// SealCredential encrypts a portable credential blob with the host's
// outbox sealing key using XChaCha20-Poly1305. The 24-byte nonce is
// prepended, mirroring the AES-GCM blob layout used by WrapKey.
func SealCredential(credential []byte, sealingKey SensitiveBytes) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(sealingKey)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, credential, nil)
	return append(nonce, sealed...), nil
}

// OpenCredential reverses SealCredential. The caller must wipe the result
// as soon as the credential has been used.
func OpenCredential(blob []byte, sealingKey SensitiveBytes) (SensitiveBytes, error) {
	aead, err := chacha20poly1305.NewX(sealingKey)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	nonceSize := aead.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	credential, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	return credential, nil
}

func newGCM(key SensitiveBytes) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return gcm, nil
}
