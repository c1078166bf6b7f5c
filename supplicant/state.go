package supplicant

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-wpactl/logger"
)

// ChannelState represents the connection state of the control channel.
type ChannelState uint32

const (
	// Disconnected indicates that no control channel is established.
	Disconnected ChannelState = iota
	// Connected indicates that both control connections are open and the
	// monitor connection is attached to the event stream.
	Connected
)

// IsConnected returns if the state is Connected.
func (s ChannelState) IsConnected() bool { return s == Connected }

// String returns a string representation of the channel state.
func (s ChannelState) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StateChangeHandler is invoked when the control channel state changes.
//
// Note: handlers are invoked in blocking mode from Connect and Disconnect.
// Take care with long-running implementations.
type StateChangeHandler func(prevState ChannelState, newState ChannelState)

// stateManager tracks the channel state and notifies listeners of changes.
// State transitions are safe in concurrent environments.
type stateManager struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []StateChangeHandler
}

func newStateManager(l logger.Logger) *stateManager {
	sm := &stateManager{logger: l}
	sm.state.Store(uint32(Disconnected))
	sm.cond = sync.NewCond(&sm.mu)

	return sm
}

// State returns the current channel state.
func (sm *stateManager) State() ChannelState {
	return ChannelState(sm.state.Load())
}

// AddHandler adds one or more StateChangeHandler functions to be invoked on
// state changes.
func (sm *stateManager) AddHandler(handlers ...StateChangeHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.handlers = append(sm.handlers, handlers...)
}

// WaitState waits for the channel state to reach the specified state or until
// the context is done.
func (sm *stateManager) WaitState(ctx context.Context, state ChannelState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		sm.cond.Broadcast()
	})
	defer stopFunc()

	for sm.State() != state {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			sm.cond.Wait()
		}
	}

	return nil
}

// set transitions to the new state and invokes the registered handlers.
// Transitions to the current state are a no-op.
func (sm *stateManager) set(newState ChannelState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	prevState := sm.State()
	if prevState == newState {
		return
	}

	sm.state.Store(uint32(newState))
	sm.cond.Broadcast()
	sm.logger.Debug("channel state changed", "prevState", prevState, "newState", newState)

	for _, handler := range sm.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}
