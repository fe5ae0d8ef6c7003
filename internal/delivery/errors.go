package delivery

import "errors"

var (
	// ErrInvalidSealingKey is returned when the configured outbox sealing
	// key is missing or not a hex-encoded 32-byte value.
	ErrInvalidSealingKey = errors.New("invalid outbox sealing key")

	// ErrNoCredential is returned when an outbox item carries no sealed
	// credential or the sealed blob cannot be opened.
	ErrNoCredential = errors.New("no delivery credential")

	// ErrNoRecipients is returned when a send is requested with an empty
	// recipient list.
	ErrNoRecipients = errors.New("no recipients")
)
