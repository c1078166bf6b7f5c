package supervise

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Store is an in-process Supervisor backed by an atomic status registry.
//
// Without hooks, Start brings a service to StatusRunning immediately and
// Stop brings it to StatusStopped, which models an instantly reacting
// supervisor. Tests and embedders that need slower or failing transitions
// install hooks with SetStartHook/SetStopHook and drive SetStatus themselves.
type Store struct {
	entries   *xsync.MapOf[string, *serviceEntry]
	startHook func(ctx context.Context, name string) error
	stopHook  func(ctx context.Context, name string) error
}

type serviceEntry struct {
	status atomic.Int32
	serial atomic.Uint64
}

var _ Supervisor = (*Store)(nil)

// NewStore creates an empty in-process supervisor registry.
func NewStore() *Store {
	return &Store{
		entries: xsync.NewMapOf[string, *serviceEntry](),
	}
}

func (s *Store) entry(name string) *serviceEntry {
	entry, _ := s.entries.LoadOrCompute(name, func() *serviceEntry {
		return &serviceEntry{}
	})

	return entry
}

// SetStatus records a status transition for the named service and bumps its
// change serial, even when the status value itself is unchanged.
func (s *Store) SetStatus(name string, status Status) {
	entry := s.entry(name)
	entry.status.Store(int32(status))
	entry.serial.Add(1)
}

// SetStartHook replaces the default Start behavior. The hook owns all status
// transitions for the start; returning an error fails the Start call.
func (s *Store) SetStartHook(hook func(ctx context.Context, name string) error) {
	s.startHook = hook
}

// SetStopHook replaces the default Stop behavior.
func (s *Store) SetStopHook(hook func(ctx context.Context, name string) error) {
	s.stopHook = hook
}

// Start brings the named service up. Without a start hook the service
// transitions through StatusStarting to StatusRunning synchronously.
func (s *Store) Start(ctx context.Context, name string) error {
	if s.startHook != nil {
		return s.startHook(ctx, name)
	}

	s.SetStatus(name, StatusStarting)
	s.SetStatus(name, StatusRunning)

	return nil
}

// Stop takes the named service down. Without a stop hook the service
// transitions to StatusStopped synchronously.
func (s *Store) Stop(ctx context.Context, name string) error {
	if s.stopHook != nil {
		return s.stopHook(ctx, name)
	}

	s.SetStatus(name, StatusStopped)

	return nil
}

// Status reports the recorded status of the named service. Services never
// seen before report StatusUnknown.
func (s *Store) Status(_ context.Context, name string) (Status, error) {
	return Status(s.entry(name).status.Load()), nil
}

// Serial reports the change counter of the named service.
func (s *Store) Serial(_ context.Context, name string) (uint64, error) {
	return s.entry(name).serial.Load(), nil
}
