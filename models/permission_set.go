// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Permission keys for non-drive capabilities. Values are stable wire/storage
// identifiers; never renumber.
const (
	PermissionReadConnections      = 10
	PermissionManageConnections    = 20
	PermissionReadCircleMembership = 50
	PermissionReadWhoIFollow       = 80
	PermissionManageFeed           = 90
)

// PermissionSet is an unordered collection of permission keys bestowed by a
// grant. The zero value is an empty set.
type PermissionSet struct {
	Keys []int `json:"keys,omitempty"`
}

// NewPermissionSet builds a set from the given keys.
func NewPermissionSet(keys ...int) PermissionSet {
	return PermissionSet{Keys: keys}
}

// HasKey reports whether key is present in the set.
func (p PermissionSet) HasKey(key int) bool {
	for _, k := range p.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Merge returns a new set containing the union of p and other.
func (p PermissionSet) Merge(other PermissionSet) PermissionSet {
	merged := PermissionSet{Keys: append([]int(nil), p.Keys...)}
	for _, k := range other.Keys {
		if !merged.HasKey(k) {
			merged.Keys = append(merged.Keys, k)
		}
	}
	return merged
}
