// Package responder implements the Responder actor and the ControlPlane
// it shares with the manager: the mutex-guarded in-flight task map, the
// stopping flag, and the FIFO of results awaiting publish.
package responder
