// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package access

import "errors"

// ErrSecurity is the kind for every authorization failure: invalid or
// revoked credentials, blocked peers, missing master key, missing
// permissions. Callers match it with errors.Is and translate it to an
// access-denied response uniformly; security failures are never retried.
var ErrSecurity = errors.New("security violation")

// ErrDriveNotGranted is returned by drive lookups when no permission group
// can resolve the requested drive. Wraps ErrSecurity.
var ErrDriveNotGranted = errors.New("drive not granted")
