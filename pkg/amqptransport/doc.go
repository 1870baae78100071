// Package amqptransport wraps github.com/rabbitmq/amqp091-go with the
// retry and naming conventions mtrpc's manager and responder share:
// bounded reconnect attempts, a stopping sentinel that bypasses retries
// during shutdown, and the deterministic queue-name derivation both
// actors rely on.
package amqptransport
