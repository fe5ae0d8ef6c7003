package service

import "errors"

var (
	ErrNotConnected     = errors.New("identity is not connected")
	ErrAlreadyConnected = errors.New("identity is already connected")
	ErrIdentityBlocked  = errors.New("identity is blocked")
	ErrNotBlocked       = errors.New("identity is not blocked")

	ErrCircleNameRequired            = errors.New("circle name is required")
	ErrSystemCircleImmutable         = errors.New("system circle cannot be modified or deleted")
	ErrCannotDeleteCircleWithMembers = errors.New("circle still has members")
	ErrCircleAlreadyGranted          = errors.New("circle already granted to identity")
	ErrInvalidDriveGrant             = errors.New("invalid drive grant")

	ErrInvalidDriveTarget = errors.New("drive target is invalid")
	ErrDriveNameRequired  = errors.New("drive name is required")

	ErrMissingMasterKey = errors.New("master key is required")
)
