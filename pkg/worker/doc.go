// Package worker implements per-task execution: decode the wire request,
// resolve it against the method tree, invoke the procedure, classify any
// error, encode the response, and hand it to the responder's
// ControlPlane. One goroutine runs one task; there is no pool or hard
// concurrency cap.
package worker
