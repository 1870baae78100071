// Package protocol implements the wire envelope for mtrpc's JSON-RPC 1.0
// dialect: request/response framing, the server-side error taxonomy, and
// the ISO-8601 date/time codec used in arguments and results.
package protocol
