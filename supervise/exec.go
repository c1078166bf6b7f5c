package supervise

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/looplab/fsm"

	"github.com/arloliu/go-wpactl/internal/pool"
	"github.com/arloliu/go-wpactl/internal/task"
	"github.com/arloliu/go-wpactl/logger"
)

// Exec process states.
const (
	stateDown      = "down"
	stateStarting  = "starting"
	stateUp        = "up"
	stateFinishing = "finishing"
)

// Exec state machine events.
const (
	eventStart   = "start"
	eventStarted = "started"
	eventStop    = "stop"
	eventExited  = "exited"
)

// Exec is a Supervisor that runs the supervised daemon as a child process of
// this process. It is meant for environments without an external supervision
// system; each Exec manages exactly one service.
//
// The process lifecycle is tracked by a state machine
// (down -> starting -> up -> finishing -> down) whose transitions bump the
// change serial, so pollers observe start/stop/crash transitions the same
// way they would with an external supervisor.
type Exec struct {
	name   string
	newCmd func() *exec.Cmd
	grace  time.Duration
	logger logger.Logger

	machine *fsm.FSM
	serial  atomic.Uint64
	started atomic.Bool
	taskMgr *task.Manager

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

var _ Supervisor = (*Exec)(nil)

// ExecOption represents a functional option for configuring an Exec supervisor.
type ExecOption interface {
	apply(*Exec) error
}

type execOptFunc struct {
	name      string
	applyFunc func(*Exec) error
}

func (o *execOptFunc) apply(e *Exec) error { return o.applyFunc(e) }

func newExecOptFunc(name string, f func(*Exec) error) *execOptFunc {
	return &execOptFunc{name: name, applyFunc: f}
}

// WithGraceTimeout sets how long Stop waits after SIGTERM before escalating
// to SIGKILL.
// An error is returned if the timeout is outside the valid range (0.01-120 seconds).
//
// The default value is 5 seconds.
func WithGraceTimeout(val time.Duration) ExecOption {
	return newExecOptFunc("WithGraceTimeout", func(e *Exec) error {
		if val < 10*time.Millisecond || val > 120*time.Second {
			return errors.New("grace timeout out of range [0.01, 120]")
		}
		e.grace = val

		return nil
	})
}

// WithExecLogger sets the logger for the Exec supervisor.
//
// The default logger is the global logger instance.
func WithExecLogger(l logger.Logger) ExecOption {
	return newExecOptFunc("WithExecLogger", func(e *Exec) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		e.logger = l

		return nil
	})
}

// NewExec creates a child-process supervisor for the named service.
// newCmd builds a fresh exec.Cmd for every (re)start; it must not reuse a
// previously started command.
func NewExec(name string, newCmd func() *exec.Cmd, opts ...ExecOption) (*Exec, error) {
	if err := validServiceName(name); err != nil {
		return nil, err
	}
	if newCmd == nil {
		return nil, errors.New("command builder is nil")
	}

	e := &Exec{
		name:   name,
		newCmd: newCmd,
		grace:  5 * time.Second,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("service", name)
	e.taskMgr = task.NewManager(context.Background(), e.logger)

	e.machine = fsm.NewFSM(
		stateDown,
		fsm.Events{
			{Name: eventStart, Src: []string{stateDown}, Dst: stateStarting},
			{Name: eventStarted, Src: []string{stateStarting}, Dst: stateUp},
			{Name: eventStop, Src: []string{stateStarting, stateUp}, Dst: stateFinishing},
			{Name: eventExited, Src: []string{stateStarting, stateUp, stateFinishing}, Dst: stateDown},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, ev *fsm.Event) {
				e.serial.Add(1)
				e.logger.Debug("service state changed", "from", ev.Src, "to", ev.Dst)
			},
		},
	)

	return e, nil
}

// Start launches the service process. Starting an already running service is
// a no-op.
func (e *Exec) Start(ctx context.Context, name string) error {
	if name != e.name {
		return fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	// An expired context must not interrupt a transition midway, that would
	// leave the machine wedged. Transitions below run detached.
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() != stateDown {
		return nil
	}

	cmd := e.newCmd()
	if cmd == nil {
		return errors.New("command builder returned nil")
	}

	if err := e.machine.Event(context.Background(), eventStart); err != nil {
		return fmt.Errorf("start transition: %w", err)
	}

	if err := cmd.Start(); err != nil {
		// Back to down; the serial bump makes the failed attempt observable.
		_ = e.machine.Event(context.Background(), eventExited)
		return fmt.Errorf("start service process: %w", err)
	}

	e.cmd = cmd
	e.exited = make(chan struct{})
	e.started.Store(true)

	if err := e.machine.Event(context.Background(), eventStarted); err != nil {
		return fmt.Errorf("started transition: %w", err)
	}

	exited := e.exited
	if err := e.taskMgr.Start("reap-"+e.name, func() bool {
		err := cmd.Wait()
		_ = e.machine.Event(context.Background(), eventExited)
		close(exited)
		if err != nil {
			e.logger.Info("service process exited", "error", err)
		} else {
			e.logger.Info("service process exited")
		}
		return false
	}); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("start reaper: %w", err)
	}

	e.logger.Debug("service process started", "pid", cmd.Process.Pid)

	return nil
}

// Stop terminates the service process with SIGTERM, escalating to SIGKILL
// after the grace timeout. Stopping a service that is already down is a
// no-op.
func (e *Exec) Stop(ctx context.Context, name string) error {
	if name != e.name {
		return fmt.Errorf("%w: %q", ErrUnknownService, name)
	}

	e.mu.Lock()
	current := e.machine.Current()
	if current == stateDown {
		e.mu.Unlock()
		return nil
	}

	cmd := e.cmd
	exited := e.exited

	if current != stateFinishing {
		if err := e.machine.Event(context.Background(), eventStop); err != nil {
			// The reaper may have raced us into down.
			if e.machine.Current() == stateDown {
				e.mu.Unlock()
				return nil
			}
			e.mu.Unlock()

			return fmt.Errorf("stop transition: %w", err)
		}
	}
	e.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)

	timer := pool.AcquireTimer(e.grace)
	defer pool.ReleaseTimer(timer)

	select {
	case <-exited:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		e.logger.Warn("service ignored SIGTERM, killing")
		_ = cmd.Process.Kill()
		select {
		case <-exited:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Status reports the state-machine status of the managed service.
// A service that has never been started reports StatusUnknown.
func (e *Exec) Status(_ context.Context, name string) (Status, error) {
	if name != e.name {
		return StatusUnknown, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}

	if !e.started.Load() {
		return StatusUnknown, nil
	}

	switch e.machine.Current() {
	case stateStarting:
		return StatusStarting, nil
	case stateUp, stateFinishing:
		// A finishing process is still alive until the reaper observes exit.
		return StatusRunning, nil
	default:
		return StatusStopped, nil
	}
}

// Serial reports the number of state transitions the service went through.
func (e *Exec) Serial(_ context.Context, name string) (uint64, error) {
	if name != e.name {
		return 0, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}

	return e.serial.Load(), nil
}
