package supervise

import "context"

// Status represents the observed state of a supervised service.
type Status int32

const (
	// StatusUnknown indicates the supervisor has no record of the service.
	StatusUnknown Status = iota
	// StatusStarting indicates the service was asked to run but is not up yet.
	StatusStarting
	// StatusRunning indicates the service is up.
	StatusRunning
	// StatusStopped indicates the service is down.
	StatusStopped
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ParseStatus converts a status string produced by String back into a Status.
// Unrecognized values parse as StatusUnknown.
func ParseStatus(s string) Status {
	switch s {
	case "starting":
		return StatusStarting
	case "running":
		return StatusRunning
	case "stopped":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// Supervisor is the service-supervision mechanism the client drives daemons
// through.
//
// Serial returns a change counter for the named status key that increases on
// every recorded transition. Callers record the serial before issuing Start
// and poll for a change afterwards; a changed serial with an unchanged
// status still proves the service transitioned in between.
type Supervisor interface {
	// Start asks the supervisor to bring the named service up.
	Start(ctx context.Context, name string) error
	// Stop asks the supervisor to take the named service down.
	Stop(ctx context.Context, name string) error
	// Status reports the currently observed status of the named service.
	Status(ctx context.Context, name string) (Status, error)
	// Serial reports the change counter associated with the named service.
	Serial(ctx context.Context, name string) (uint64, error)
}
