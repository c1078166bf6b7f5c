package ctrl

import "errors"

var (
	// ErrConfigNil indicates that a nil connection configuration was provided.
	ErrConfigNil = errors.New("ctrl config is nil")

	// ErrEmptyPath indicates that an empty control endpoint path was provided.
	ErrEmptyPath = errors.New("control endpoint path is empty")
)

var (
	// ErrTimeout indicates that the daemon did not reply within the request
	// timeout. The command may still be processed by the daemon.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed indicates that the connection has been closed.
	ErrClosed = errors.New("connection closed")

	// ErrAttachRejected indicates that the daemon refused the event
	// subscription request.
	ErrAttachRejected = errors.New("attach rejected by daemon")

	// ErrDetachRejected indicates that the daemon refused the event
	// unsubscription request.
	ErrDetachRejected = errors.New("detach rejected by daemon")
)
