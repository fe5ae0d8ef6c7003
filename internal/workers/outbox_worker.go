// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/delivery"
	"github.com/MKhiriev/identity-host/internal/logger"
)

const (
	defaultDrainInterval     = 5 * time.Second
	defaultReclaimInterval   = time.Minute
	defaultReconcileInterval = 5 * time.Minute
)

// tickerWorker runs one job on a fixed interval. The worker is idle until
// Run is called; Stop cancels the loop and blocks until it has exited.
type tickerWorker struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context)
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (w *tickerWorker) Run() {
	w.Stop()

	w.mu.Lock()
	ctx, cancel := context.WithCancel(w.logger.WithContext(context.Background()))
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	w.logger.Info().
		Str("func", "workers.tickerWorker.Run").
		Str("worker", w.name).
		Dur("interval", w.interval).
		Msg("worker started")

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.job(ctx)
			}
		}
	}()
}

// Stop cancels the loop and blocks until the goroutine has fully exited.
// Safe to call when the worker is not running (no-op in that case).
func (w *tickerWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// NewOutboxDrainWorker returns the worker that periodically drains every
// drive's due outbox items through the processor.
func NewOutboxDrainWorker(processor delivery.Processor, cfg config.Outbox, log *logger.Logger) Worker {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultDrainInterval
	}

	return &tickerWorker{
		name:     "outbox-drain",
		interval: interval,
		logger:   log,
		job: func(ctx context.Context) {
			n, err := processor.ProcessOutbox(ctx)
			if err != nil {
				log.Err(err).
					Str("func", "workers.outboxDrain").
					Int("processed", n).
					Msg("outbox drain pass failed")
				return
			}
			if n > 0 {
				log.Info().
					Str("func", "workers.outboxDrain").
					Int("processed", n).
					Msg("outbox drain pass completed")
			}
		},
	}
}

// NewEscrowReconcileWorker returns the worker that periodically retries
// deliveries parked in the key escrow queue.
func NewEscrowReconcileWorker(reconciler delivery.EscrowReconciler, log *logger.Logger) Worker {
	return &tickerWorker{
		name:     "escrow-reconcile",
		interval: defaultReconcileInterval,
		logger:   log,
		job: func(ctx context.Context) {
			n, err := reconciler.Reconcile(ctx)
			if err != nil {
				log.Err(err).
					Str("func", "workers.escrowReconcile").
					Int("released", n).
					Msg("escrow reconcile pass failed")
				return
			}
			if n > 0 {
				log.Info().
					Str("func", "workers.escrowReconcile").
					Int("released", n).
					Msg("parked deliveries re-enqueued")
			}
		},
	}
}

// NewClaimRecoveryWorker returns the worker that releases outbox claims
// abandoned by a crashed or restarted processing pass.
func NewClaimRecoveryWorker(processor delivery.Processor, log *logger.Logger) Worker {
	return &tickerWorker{
		name:     "claim-recovery",
		interval: defaultReclaimInterval,
		logger:   log,
		job: func(ctx context.Context) {
			n, err := processor.RecoverDeadClaims(ctx)
			if err != nil {
				log.Err(err).
					Str("func", "workers.claimRecovery").
					Msg("claim recovery pass failed")
				return
			}
			if n > 0 {
				log.Warn().
					Str("func", "workers.claimRecovery").
					Int64("recovered", n).
					Msg("recovered abandoned outbox claims")
			}
		},
	}
}
