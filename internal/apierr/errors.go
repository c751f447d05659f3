// Package apierr defines the sentinel error taxonomy shared by the batcher,
// publisher, servicer and consumer so that callers can classify failures with
// errors.Is instead of string matching.
package apierr

import "errors"

var (
	// ErrInvalidArgument marks a malformed request: an undecodable image, a
	// key/value mismatch, or a value outside its documented domain.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotRunning marks an operation attempted after the component was
	// stopped (e.g. Batcher.Submit after Stop).
	ErrNotRunning = errors.New("component not running")

	// ErrNotConnected marks a publish attempted before Connect succeeded.
	ErrNotConnected = errors.New("publisher not connected")

	// ErrDroppedBackpressure marks a message dropped because the pending
	// count had already reached the configured ceiling.
	ErrDroppedBackpressure = errors.New("dropped: publisher backpressure")

	// ErrInferenceFailed wraps a detector-side failure for an entire batch.
	ErrInferenceFailed = errors.New("inference failed")

	// ErrCancelled marks a submission cancelled while still queued, most
	// commonly by Batcher.Stop.
	ErrCancelled = errors.New("submission cancelled")

	// ErrConnectionFailed marks a broker session that could not be
	// established.
	ErrConnectionFailed = errors.New("broker connection failed")

	// ErrHandlerFailed marks a consumer handler that returned an error.
	ErrHandlerFailed = errors.New("handler failed")

	// ErrBrokerTransient marks a retriable broker-level error observed by
	// the consumer poll loop.
	ErrBrokerTransient = errors.New("transient broker error")
)
