package workers

// Workers aggregates the host's background workers so main can start and
// stop them as one unit.
type Workers struct {
	workers []Worker
}

func NewWorkers(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}

// Stop stops every worker that supports stopping, in reverse start order,
// blocking until each has fully exited.
func (w *Workers) Stop() {
	for i := len(w.workers) - 1; i >= 0; i-- {
		if stoppable, ok := w.workers[i].(interface{ Stop() }); ok {
			stoppable.Stop()
		}
	}
}
