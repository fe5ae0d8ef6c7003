// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// FileIdentifier addresses a file on this host by internal drive and file id.
type FileIdentifier struct {
	DriveID uuid.UUID `json:"driveId"`
	FileID  uuid.UUID `json:"fileId"`
}

// GlobalTransitFileIdentifier addresses a file across hosts: the
// caller-facing drive reference plus the file's global transit id, which
// stays stable as the file is copied between identities.
type GlobalTransitFileIdentifier struct {
	TargetDrive     TargetDrive `json:"targetDrive"`
	GlobalTransitID uuid.UUID   `json:"globalTransitId"`
}

// ThumbnailDescriptor describes one stored thumbnail rendition.
type ThumbnailDescriptor struct {
	PixelWidth  int    `json:"pixelWidth"`
	PixelHeight int    `json:"pixelHeight"`
	ContentType string `json:"contentType"`
}

// ThumbnailPartKey names the multipart section a thumbnail rendition
// travels under. Both hosts derive it the same way, so the receiver can
// match each rendition back to its payload.
func ThumbnailPartKey(payloadKey string, width, height int) string {
	return fmt.Sprintf("thumb_%s_%dx%d", payloadKey, width, height)
}

// PayloadDescriptor describes one payload attached to a file.
type PayloadDescriptor struct {
	Key         string                `json:"key"`
	ContentType string                `json:"contentType"`
	ByteCount   int64                 `json:"byteCount"`
	Thumbnails  []ThumbnailDescriptor `json:"thumbnails,omitempty"`
}

// FileMetadata is the file header's caller-visible portion. When shipped to
// a peer it is first passed through Redacted to strip internal identifiers.
type FileMetadata struct {
	File            FileIdentifier  `json:"file"`
	Created         int64           `json:"created"`
	Updated         int64           `json:"updated"`
	IsEncrypted     bool            `json:"isEncrypted"`
	SenderID        string          `json:"senderId,omitempty"`
	GlobalTransitID uuid.UUID       `json:"globalTransitId"`
	VersionTag      uuid.UUID       `json:"versionTag"`
	AppData         json.RawMessage `json:"appData,omitempty"`

	ReferencedFile *GlobalTransitFileIdentifier `json:"referencedFile,omitempty"`
	Payloads       []PayloadDescriptor          `json:"payloads,omitempty"`
}

// Redacted returns the projection of the metadata that may leave this host:
// internal file/drive ids are zeroed and the sender identity is dropped
// when stripSender is set. Fields are copied explicitly so any new header
// attribute must be consciously added to the outbound shape.
func (m FileMetadata) Redacted(stripSender bool, globalTransitID uuid.UUID) FileMetadata {
	sender := m.SenderID
	if stripSender {
		sender = ""
	}

	return FileMetadata{
		File:            FileIdentifier{},
		Created:         m.Created,
		Updated:         m.Updated,
		IsEncrypted:     m.IsEncrypted,
		SenderID:        sender,
		GlobalTransitID: globalTransitID,
		VersionTag:      m.VersionTag,
		AppData:         m.AppData,
		ReferencedFile:  m.ReferencedFile,
		Payloads:        m.Payloads,
	}
}

// ServerMetadata is the server-only portion of a file header.
type ServerMetadata struct {
	// AllowDistribution gates whether this file may ever be shipped to a
	// peer. Checked again at the last moment before each transmission.
	AllowDistribution bool `json:"allowDistribution"`

	FileByteCount int64 `json:"fileByteCount"`
}

// ServerFileHeader is the full stored header of one drive file.
type ServerFileHeader struct {
	FileMetadata   FileMetadata   `json:"fileMetadata"`
	ServerMetadata ServerMetadata `json:"serverMetadata"`

	// EncryptedKeyHeader is the file's content key header wrapped with the
	// drive's storage key.
	EncryptedKeyHeader EncryptedKeyHeader `json:"encryptedKeyHeader"`
}

// TransferHistoryEntry is the per-recipient delivery record kept alongside
// a source file's header.
type TransferHistoryEntry struct {
	Recipient            string         `json:"recipient"`
	IsInOutbox           bool           `json:"isInOutbox"`
	LatestTransferStatus TransferResult `json:"latestTransferStatus"`

	// LatestSuccessfulVersionTag is the file version last confirmed
	// delivered to this recipient.
	LatestSuccessfulVersionTag uuid.UUID `json:"latestSuccessfulVersionTag"`
}
