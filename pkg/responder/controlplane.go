package responder

import (
	"sync"
)

// ControlPlane is the state the manager and responder share: the
// in-flight task map and the stopping flag live behind one mutex, so a
// shutdown can never observe a half-recorded task, and the Result FIFO
// is a buffered channel between them.
type ControlPlane struct {
	mu       sync.Mutex
	inFlight map[uint64]*Task
	stopping *StopSentinel

	results chan *Result
	stopCh  chan *StopSentinel
}

// NewControlPlane creates a ControlPlane with a Result FIFO of the given
// capacity (config's responder_attributes.queue_size).
func NewControlPlane(queueSize int) *ControlPlane {
	return &ControlPlane{
		inFlight: map[uint64]*Task{},
		results:  make(chan *Result, queueSize),
		stopCh:   make(chan *StopSentinel, 1),
	}
}

// Accept records task as in-flight. It returns false without recording
// anything if the ControlPlane is already stopping - the manager must not
// spawn a worker for a task it can't guarantee will be drained.
func (cp *ControlPlane) Accept(task *Task) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.stopping != nil {
		return false
	}
	cp.inFlight[task.ID] = task
	return true
}

// Retire removes a task from the in-flight map, returning it if present.
func (cp *ControlPlane) Retire(taskID uint64) (*Task, bool) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	t, ok := cp.inFlight[taskID]
	if ok {
		delete(cp.inFlight, taskID)
	}
	return t, ok
}

// InFlightCount reports how many tasks are currently recorded.
func (cp *ControlPlane) InFlightCount() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.inFlight)
}

// RequestStop marks the ControlPlane stopping and signals sentinel on a
// dedicated channel the responder checks ahead of the Result FIFO on
// every loop iteration, so a force stop takes effect even with results
// already buffered. It is a no-op, returning false, if a stop was
// already requested.
func (cp *ControlPlane) RequestStop(sentinel *StopSentinel) bool {
	cp.mu.Lock()
	if cp.stopping != nil {
		cp.mu.Unlock()
		return false
	}
	cp.stopping = sentinel
	cp.mu.Unlock()

	cp.stopCh <- sentinel
	return true
}

// IsStopping reports whether a stop has been requested.
func (cp *ControlPlane) IsStopping() bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.stopping != nil
}

// Publish enqueues a worker's result, blocking while the FIFO is full so
// a burst of completions applies backpressure instead of dropping
// results. A force-stop may leave a publish blocked forever if the
// responder has already exited; that goroutine leak is the accepted
// cost of force-stop semantics, since the process is exiting regardless.
func (cp *ControlPlane) Publish(result *Result) {
	cp.results <- result
}

// Results returns the channel the responder reads from.
func (cp *ControlPlane) Results() <-chan *Result {
	return cp.results
}

// StopSignal returns the channel a requested stop is announced on.
func (cp *ControlPlane) StopSignal() <-chan *StopSentinel {
	return cp.stopCh
}
