// Package rpcclient is a minimal client proxy for calling mtrpc
// procedures: it declares a private reply queue, publishes a request, and
// correlates the reply back to the waiting caller by correlation ID. It
// is not a supported client SDK, just what integration tests and the
// CLI's "call" subcommand use to exercise the manager/responder
// pipeline end to end.
package rpcclient
