// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package delivery

import (
	"math/rand"
	"time"

	"github.com/MKhiriev/identity-host/internal/config"
)

const (
	defaultBackoffBase = 10 * time.Second
	defaultBackoffCap  = 10 * time.Minute
)

// Backoff computes the re-arm delay for a failed outbox item: exponential in
// the attempt count, jittered, bounded by Cap.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// NewBackoff builds the strategy from the outbox configuration, applying
// defaults for unset fields.
func NewBackoff(cfg config.Outbox) Backoff {
	b := Backoff{Base: cfg.BackoffBase, Cap: cfg.BackoffCap}
	if b.Base <= 0 {
		b.Base = defaultBackoffBase
	}
	if b.Cap <= 0 {
		b.Cap = defaultBackoffCap
	}
	return b
}

// Next returns the delay to apply after the given failed attempt count.
// The delay doubles per attempt up to Cap, with full jitter over the upper
// half of the window so concurrent failures do not re-arm in lockstep.
func (b Backoff) Next(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.Cap || d <= 0 {
			d = b.Cap
			break
		}
	}

	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// NextRun returns the unix-millisecond eligibility time for the item's next
// attempt.
func (b Backoff) NextRun(attempt int, now time.Time) int64 {
	return now.Add(b.Next(attempt)).UnixMilli()
}
