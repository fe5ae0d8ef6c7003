// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "github.com/google/uuid"

// PermissionSetGrantRequest is the template an app declares for members of
// its authorized circles: which drives and which permission keys a member
// receives through the app.
type PermissionSetGrantRequest struct {
	Drives        []DriveGrantRequest `json:"drives,omitempty"`
	PermissionSet PermissionSet       `json:"permissionSet"`
}

// AppRegistration describes one registered application: its identity, the
// circles it authorizes, and the grant template applied to members of those
// circles.
type AppRegistration struct {
	AppID   uuid.UUID `json:"appId"`
	Name    string    `json:"name"`
	Created int64     `json:"created"`

	// AuthorizedCircles lists the circles whose members receive this app's
	// circle-member grant.
	AuthorizedCircles []uuid.UUID `json:"authorizedCircles,omitempty"`

	CircleMemberGrant PermissionSetGrantRequest `json:"circleMemberGrant"`
}

// AuthorizesCircle reports whether circleID is in the app's authorized list.
func (a AppRegistration) AuthorizesCircle(circleID uuid.UUID) bool {
	for _, id := range a.AuthorizedCircles {
		if id == circleID {
			return true
		}
	}
	return false
}
