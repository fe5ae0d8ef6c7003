// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// KeyHeader is the plaintext content key of one file: the AES key and IV
// used to encrypt the file's payload. It exists in memory only while being
// re-wrapped for a recipient and must be wiped afterwards.
type KeyHeader struct {
	IV     []byte `json:"iv"`
	AESKey []byte `json:"aesKey"`
}

// EmptyKeyHeader is used for unencrypted files.
func EmptyKeyHeader() KeyHeader {
	return KeyHeader{IV: make([]byte, 16), AESKey: make([]byte, 32)}
}

// Wipe zeroes the key material in place.
func (k *KeyHeader) Wipe() {
	for i := range k.AESKey {
		k.AESKey[i] = 0
	}
	for i := range k.IV {
		k.IV[i] = 0
	}
}

// Combined returns iv ‖ key as a single buffer for encryption.
func (k KeyHeader) Combined() []byte {
	buf := make([]byte, 0, len(k.IV)+len(k.AESKey))
	buf = append(buf, k.IV...)
	buf = append(buf, k.AESKey...)
	return buf
}

// KeyHeaderFromCombined splits the iv ‖ key form produced by Combined.
// The IV is fixed at 16 bytes.
func KeyHeaderFromCombined(data []byte) KeyHeader {
	if len(data) < 16 {
		return KeyHeader{}
	}
	return KeyHeader{
		IV:     append([]byte(nil), data[:16]...),
		AESKey: append([]byte(nil), data[16:]...),
	}
}

// EncryptedKeyHeader is a key header wrapped with some symmetric key: the
// drive storage key at rest, or a connection's shared secret in transit.
type EncryptedKeyHeader struct {
	EncryptionVersion int    `json:"encryptionVersion"`
	IV                []byte `json:"iv,omitempty"`
	Data              []byte `json:"data,omitempty"`
}

// IsEmpty reports whether no wrapped key is present.
func (e EncryptedKeyHeader) IsEmpty() bool {
	return len(e.Data) == 0
}
