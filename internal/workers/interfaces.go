// Package workers provides abstractions for managing and running
// background workers of the identity host.
// It defines the Worker interface, a Workers aggregate that allows
// running multiple workers in a unified way, and the concrete outbox
// workers: the periodic drain pass and stale-claim recovery.
package workers

// Worker is the interface that must be implemented by any background worker.
// It defines a single Run method that starts the worker's execution.
//
// Implementations are expected to spawn goroutines internally and exit
// when their context is cancelled.
type Worker interface {
	Run()
}
