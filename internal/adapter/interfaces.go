package adapter

//go:generate mockgen -source=interfaces.go -destination=../mock/peer_client_mock.go -package=mock

import (
	"context"

	"github.com/MKhiriev/identity-host/models"
)

// PayloadPart is one binary part of a multi-part transfer: a payload or a
// thumbnail rendition.
type PayloadPart struct {
	Key         string
	ContentType string
	Content     []byte
}

// TransferPackage is the assembled outbound transmission for one file:
// instruction header, redacted metadata, and whichever content parts the
// send options requested.
type TransferPackage struct {
	Instructions models.TransferInstructionSet
	Metadata     models.FileMetadata
	Payloads     []PayloadPart
}

// PeerTransferClient is the outbound host-to-host transport. Every call
// carries the recipient's client auth token; application-level outcomes
// come back as a PeerResponseCode, transport and HTTP-level failures as
// errors classified by this package's sentinels.
type PeerTransferClient interface {
	// SendHostToHost ships a file (header, metadata and optional payload
	// parts) to the recipient host.
	SendHostToHost(ctx context.Context, recipient string, token models.ClientAuthToken, pkg TransferPackage) (models.PeerResponseCode, error)

	// UpdatePayloads replaces payload parts of a previously transferred file.
	UpdatePayloads(ctx context.Context, recipient string, token models.ClientAuthToken, pkg TransferPackage) (models.PeerResponseCode, error)

	// DeleteLinkedFile asks the recipient to remove its copy of the file.
	DeleteLinkedFile(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error)

	// MarkFileAsRead delivers a read receipt for the file.
	MarkFileAsRead(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error)
}
