// Package manager implements the Manager actor: it owns the inbound AMQP
// connection, declares the queues/bindings from configuration (the
// exchanges themselves are declared by the caller before Run),
// consumes deliveries, allocates task IDs, and spawns one worker
// goroutine per task. Shutdown is cooperative: a stopping descriptor
// wakes the consume loop via an OS pipe multiplexed alongside the
// blocking AMQP read.
package manager
