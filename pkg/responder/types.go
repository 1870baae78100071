package responder

import "time"

// Task is one accepted-but-unresolved request. The
// manager records it in the ControlPlane's in-flight map when a worker
// goroutine is spawned, and the worker retires it once it has handed its
// Result to the FIFO. The responder does not remove tasks from the map,
// so a Result still buffered in the FIFO has no in-flight entry.
type Task struct {
	ID            uint64
	Method        string
	Exchange      string // response exchange the result publishes to
	ReplyTo       string
	CorrelationID string
	StartedAt     time.Time
}

// Result is what a worker hands back to the ControlPlane once a task has
// been decoded, resolved, invoked, and encoded.
type Result struct {
	TaskID        uint64
	Exchange      string
	ReplyTo       string
	CorrelationID string
	Payload       []byte
}

// StopSentinel is the stopping descriptor: Reason is informational,
// Severity distinguishes an operator-requested stop from an
// error-triggered one, and Force discards anything still queued instead
// of draining it.
type StopSentinel struct {
	Reason   string
	Severity string
	Force    bool
}
