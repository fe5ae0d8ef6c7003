// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "github.com/google/uuid"

// SystemCircleID is the reserved circle that every connected identity is a
// member of. Its drive grants mirror the set of drives that allow anonymous
// reads; it cannot be deleted or disabled.
var SystemCircleID = uuid.MustParse("99999999-8888-7777-6666-555544443333")

// CircleDefinition is a named, reusable template of drive grants and
// permission keys. Disabling a definition is soft: the record persists and
// standing grants derived from it remain stored, but they become inert for
// every permission context built afterwards.
type CircleDefinition struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Disabled    bool      `json:"disabled"`

	// LastUpdated is a unix-millisecond stamp mutated on every write.
	LastUpdated int64 `json:"lastUpdated"`

	DriveGrants []DriveGrantRequest `json:"driveGrants,omitempty"`
	Permissions PermissionSet       `json:"permissions"`
}

// IsSystemCircle reports whether this definition is the reserved system
// circle.
func (c CircleDefinition) IsSystemCircle() bool {
	return c.ID == SystemCircleID
}

// CreateCircleRequest carries the owner-supplied fields for a new circle
// definition.
type CreateCircleRequest struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	DriveGrants []DriveGrantRequest `json:"driveGrants,omitempty"`
	Permissions PermissionSet       `json:"permissions"`
}
