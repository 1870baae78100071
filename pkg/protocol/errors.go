package protocol

import "errors"

// Sentinel errors for the wire error taxonomy. Workers compare against
// these with errors.Is/errors.As; Classify turns any error into the
// RPCError shape that actually goes out on the wire.
var (
	ErrNotificationsNotImplemented = errors.New("notifications not implemented")
	ErrNotFound                    = errors.New("not found")
	ErrBadAccessPattern            = errors.New("bad access pattern")
)

// DeserializationError wraps a JSON decode failure on an inbound request.
type DeserializationError struct{ Cause error }

func (e *DeserializationError) Error() string { return "deserialization error: " + e.Cause.Error() }
func (e *DeserializationError) Unwrap() error { return e.Cause }

// InvalidRequestError signals a parseable but malformed request envelope.
type InvalidRequestError struct{ Reason string }

func (e *InvalidRequestError) Error() string { return "invalid request: " + e.Reason }

// BadArgumentsError signals an argument list that doesn't match a
// procedure's signature. Message must name the method and its formatted
// signature.
type BadArgumentsError struct {
	Method    string
	Signature string
	Reason    string
}

func (e *BadArgumentsError) Error() string {
	return "bad arguments for " + e.Method + e.Signature + ": " + e.Reason
}

// AccessDeniedError is raised by a procedure's authorize hook. The worker
// maps it to NotFound so callers can't distinguish "absent" from "denied".
type AccessDeniedError struct{ Reason string }

func (e *AccessDeniedError) Error() string { return "access denied: " + e.Reason }

// DomainError is any error a procedure body raises deliberately. It
// propagates to the wire verbatim (name, message, optional data).
type DomainError struct {
	Name    string
	Message string
	Data    map[string]any
}

func (e *DomainError) Error() string { return e.Name + ": " + e.Message }

// NewDomainError constructs a DomainError without optional data.
func NewDomainError(name, message string) *DomainError {
	return &DomainError{Name: name, Message: message}
}

// Classify turns any error returned from the worker pipeline into the
// RPCError that goes on the wire: known client/config errors pass
// through with their name, BadAccessPattern and anything unrecognized
// become an opaque InternalServerError so internals never leak.
func Classify(err error) *RPCError {
	if err == nil {
		return nil
	}

	var deser *DeserializationError
	if errors.As(err, &deser) {
		return &RPCError{Name: "DeserializationError", Message: err.Error()}
	}

	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return &RPCError{Name: "InvalidRequest", Message: err.Error()}
	}

	if errors.Is(err, ErrNotificationsNotImplemented) {
		return &RPCError{Name: "NotificationsNotImplemented", Message: err.Error()}
	}

	if errors.Is(err, ErrNotFound) {
		return &RPCError{Name: "NotFound", Message: "method not found"}
	}

	var badArgs *BadArgumentsError
	if errors.As(err, &badArgs) {
		return &RPCError{Name: "BadArguments", Message: err.Error()}
	}

	var denied *AccessDeniedError
	if errors.As(err, &denied) {
		// Indistinguishable from absence, so callers can't probe for it.
		return &RPCError{Name: "NotFound", Message: "method not found"}
	}

	var domain *DomainError
	if errors.As(err, &domain) {
		return &RPCError{Name: domain.Name, Message: domain.Message, Data: domain.Data}
	}

	// ErrBadAccessPattern and anything else unclassified: opaque.
	return &RPCError{Name: "InternalServerError", Message: "internal server error"}
}
