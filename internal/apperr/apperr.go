// Package apperr defines the error taxonomy shared across the screening
// services: invalid-argument, not-found, upstream-failure,
// broker-unavailable, invalid-envelope, transient, and fatal. Callers use
// errors.Is against the sentinels below; transport layers map them to
// status codes.
package apperr

import "errors"

var (
	// ErrInvalidArgument marks caller input that failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks an absent entity or upstream resource.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamFailure marks a failure from an external lookup or model
	// backend that is not itself a "not found".
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrBrokerUnavailable marks a publish-path failure (broker connection
	// or channel error).
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrInvalidEnvelope marks a decode failure for an unknown or malformed
	// event envelope.
	ErrInvalidEnvelope = errors.New("invalid event envelope")

	// ErrCallAlreadyActive marks an attempt to start a call for an
	// application that already has one in progress.
	ErrCallAlreadyActive = errors.New("call already active")
)

// Wrap annotates err with msg while preserving errors.Is/As compatibility
// with the given sentinel.
func Wrap(sentinel error, msg string, cause error) error {
	if cause == nil {
		return &wrapped{msg: msg, sentinel: sentinel}
	}
	return &wrapped{msg: msg + ": " + cause.Error(), sentinel: sentinel, cause: cause}
}

type wrapped struct {
	msg      string
	sentinel error
	cause    error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() []error {
	if w.cause != nil {
		return []error{w.sentinel, w.cause}
	}
	return []error{w.sentinel}
}
