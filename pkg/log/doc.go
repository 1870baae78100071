// Package log provides structured logging for the mtrpc server using zerolog.
//
// A single global Logger is configured once via Init and child loggers are
// derived with WithComponent, WithTaskID, and WithMethod so call sites don't
// repeat context fields. The manager and responder each hold a component
// logger created at startup; workers log through a per-task child logger,
// and the method-tree builder returns its warnings for the caller to log.
package log
