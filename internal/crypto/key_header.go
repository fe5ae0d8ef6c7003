// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/MKhiriev/identity-host/models"
)

// EncryptKeyHeader wraps a file's content key header with the given
// symmetric key (drive storage key at rest, connection shared secret in
// transit) using AES-256-GCM. The nonce is carried in the IV field.
func EncryptKeyHeader(header models.KeyHeader, key SensitiveBytes) (models.EncryptedKeyHeader, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return models.EncryptedKeyHeader{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return models.EncryptedKeyHeader{}, err
	}

	combined := header.Combined()
	sealed := gcm.Seal(nil, nonce, combined, nil)
	for i := range combined {
		combined[i] = 0
	}

	return models.EncryptedKeyHeader{
		EncryptionVersion: 1,
		IV:                nonce,
		Data:              sealed,
	}, nil
}

// ReencryptKeyHeader unwraps a key header with fromKey and immediately
// re-wraps it with toKey, wiping the plaintext header on every exit path.
func ReencryptKeyHeader(encrypted models.EncryptedKeyHeader, fromKey, toKey SensitiveBytes) (models.EncryptedKeyHeader, error) {
	header, err := DecryptKeyHeader(encrypted, fromKey)
	if err != nil {
		return models.EncryptedKeyHeader{}, err
	}
	defer header.Wipe()

	return EncryptKeyHeader(header, toKey)
}

// DecryptKeyHeader reverses EncryptKeyHeader. The caller must wipe the
// returned header after use.
func DecryptKeyHeader(encrypted models.EncryptedKeyHeader, key SensitiveBytes) (models.KeyHeader, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return models.KeyHeader{}, err
	}

	combined, err := gcm.Open(nil, encrypted.IV, encrypted.Data, nil)
	if err != nil {
		return models.KeyHeader{}, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	header := models.KeyHeaderFromCombined(combined)
	for i := range combined {
		combined[i] = 0
	}

	return header, nil
}
