package supplicant

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/arloliu/go-wpactl/ctrl"
	"github.com/arloliu/go-wpactl/internal/pool"
	"github.com/arloliu/go-wpactl/logger"
	"github.com/arloliu/go-wpactl/supervise"
)

// Manager is the client of one control-plane daemon instance. It drives the
// daemon lifecycle through the configured supervisor and owns at most one
// control channel at a time.
//
// All public methods are safe for concurrent use. Connect and Disconnect
// serialize with each other; commands and event waits run against the
// channel that was active when they started.
type Manager struct {
	cfg      *Config
	logger   logger.Logger
	stateMgr *stateManager
	metrics  ManagerMetrics

	// lifeMu serializes Start and Stop.
	lifeMu sync.Mutex

	// connMu guards channel replacement by Connect and Disconnect.
	connMu  sync.RWMutex
	channel *channel
}

// NewManager creates a Manager from a configuration built by NewConfig.
func NewManager(cfg *Config) *Manager {
	l := cfg.logger.With("service", cfg.service, "iface", cfg.iface)

	return &Manager{
		cfg:      cfg,
		logger:   l,
		stateMgr: newStateManager(l),
	}
}

// Metrics returns the manager metrics.
func (m *Manager) Metrics() *ManagerMetrics {
	return &m.metrics
}

// State returns the current control channel state.
func (m *Manager) State() ChannelState {
	return m.stateMgr.State()
}

// OnStateChange registers handlers invoked on channel state changes.
func (m *Manager) OnStateChange(handlers ...StateChangeHandler) {
	m.stateMgr.AddHandler(handlers...)
}

// WaitState blocks until the channel reaches the specified state or the
// context is done.
func (m *Manager) WaitState(ctx context.Context, state ChannelState) error {
	return m.stateMgr.WaitState(ctx, state)
}

// Start brings the daemon up through the supervisor.
//
// Starting an already running daemon is a no-op. Otherwise Start provisions
// daemon files when a provisioner is configured, purges stale client
// sockets, issues the supervisor start, and polls until the daemon reports
// running. The supervisor's change serial is recorded before the start is
// issued, so a daemon that starts and dies between two polls is still
// detected instead of being reported as never having moved.
func (m *Manager) Start(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	status, err := m.cfg.supervisor.Status(ctx, m.cfg.service)
	if err != nil {
		return fmt.Errorf("query service status: %w", err)
	}
	if status == supervise.StatusRunning {
		m.logger.Debug("daemon already running")
		return nil
	}

	if m.cfg.provisioner != nil {
		if err := m.cfg.provisioner.Provision(ctx); err != nil {
			return fmt.Errorf("provision daemon files: %w", err)
		}
	}

	if m.cfg.clientDir != "" {
		if removed, err := ctrl.Cleanup(m.cfg.clientDir); err == nil && removed > 0 {
			m.logger.Debug("removed stale client sockets", "count", removed)
		}
	}

	serial, err := m.cfg.supervisor.Serial(ctx, m.cfg.service)
	if err != nil {
		return fmt.Errorf("query service serial: %w", err)
	}

	if err := m.cfg.supervisor.Start(ctx, m.cfg.service); err != nil {
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	// Give an in-process supervisor a chance to transition before the
	// first poll.
	runtime.Gosched()

	deadline := time.Now().Add(m.cfg.startTimeout)
	timer := pool.AcquireTimer(m.cfg.startPollInterval)
	defer pool.ReleaseTimer(timer)

	for {
		cur, err := m.cfg.supervisor.Serial(ctx, m.cfg.service)
		if err == nil && cur != serial {
			status, err := m.cfg.supervisor.Status(ctx, m.cfg.service)
			if err == nil {
				switch status {
				case supervise.StatusRunning:
					m.logger.Info("daemon started")
					return nil
				case supervise.StatusStopped:
					m.logger.Error("daemon died right after starting")
					return fmt.Errorf("%w: daemon transitioned to stopped", ErrStartFailed)
				}
			}
		}

		if time.Now().After(deadline) {
			m.logger.Error("daemon did not come up", "timeout", m.cfg.startTimeout)
			return ErrStartTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(m.cfg.startPollInterval)
		}
	}
}

// Stop takes the daemon down through the supervisor.
//
// Stopping an already stopped daemon is a no-op. Stop does not tear down an
// active control channel; callers Disconnect explicitly, or let a blocked
// WaitEvent observe the stop through its liveness probe.
func (m *Manager) Stop(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	status, err := m.cfg.supervisor.Status(ctx, m.cfg.service)
	if err != nil {
		return fmt.Errorf("query service status: %w", err)
	}
	if status == supervise.StatusStopped {
		m.logger.Debug("daemon already stopped")
		return nil
	}

	if err := m.cfg.supervisor.Stop(ctx, m.cfg.service); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}

	runtime.Gosched()

	deadline := time.Now().Add(m.cfg.stopTimeout)
	timer := pool.AcquireTimer(m.cfg.stopPollInterval)
	defer pool.ReleaseTimer(timer)

	for {
		status, err := m.cfg.supervisor.Status(ctx, m.cfg.service)
		if err == nil && status == supervise.StatusStopped {
			m.logger.Info("daemon stopped")
			return nil
		}

		if time.Now().After(deadline) {
			m.logger.Warn("daemon did not stop in time", "timeout", m.cfg.stopTimeout)
			return ErrStopTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(m.cfg.stopPollInterval)
		}
	}
}

// activeChannel returns the currently connected channel, or nil.
func (m *Manager) activeChannel() *channel {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	return m.channel
}
