package supervise

import "errors"

var (
	// ErrUnknownService indicates that the supervisor does not manage a
	// service with the given name.
	ErrUnknownService = errors.New("service not managed by this supervisor")

	// ErrStatusFormat indicates that a supervise status file has an
	// unrecognized size or layout.
	ErrStatusFormat = errors.New("unrecognized supervise status file format")
)
