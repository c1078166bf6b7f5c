package supplicant

import "errors"

// Lifecycle errors. Start and Stop never retry internally; callers decide
// whether a timeout is fatal.
var (
	// ErrStartFailed indicates that the daemon was started but transitioned
	// to stopped before it ever reported running.
	ErrStartFailed = errors.New("daemon start failed")

	// ErrStartTimeout indicates that the daemon did not report running within
	// the start timeout.
	ErrStartTimeout = errors.New("daemon start timed out")

	// ErrStopTimeout indicates that the daemon did not report stopped within
	// the stop timeout. Callers may log it and continue; the stop request
	// itself was delivered.
	ErrStopTimeout = errors.New("daemon stop timed out")
)

// Connection errors. All Connect failures leave no partial resources behind.
var (
	// ErrNotRunning indicates that Connect was called while the daemon is
	// not running.
	ErrNotRunning = errors.New("daemon not running")

	// ErrAlreadyConnected indicates that Connect was called on a manager
	// that already holds an active control channel.
	ErrAlreadyConnected = errors.New("control channel already connected")

	// ErrOpenFailed indicates that one of the two control connections could
	// not be opened.
	ErrOpenFailed = errors.New("open control connection failed")

	// ErrAttachFailed indicates that the daemon refused the event stream
	// subscription on the monitor connection.
	ErrAttachFailed = errors.New("attach to event stream failed")
)

// Command errors.
var (
	// ErrNotConnected indicates a command was issued without an active
	// control channel. It is a quiet condition, logged at Debug only.
	ErrNotConnected = errors.New("control channel not connected")

	// ErrCommandTimeout indicates that the daemon did not reply within the
	// request timeout. The command may still have been processed; a blocked
	// event wait is woken as a side effect.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrCommandRejected indicates that the daemon answered with a failure
	// reply.
	ErrCommandRejected = errors.New("command rejected by daemon")
)
