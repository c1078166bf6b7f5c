package supplicant

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/arloliu/go-wpactl/ctrl"
	"github.com/arloliu/go-wpactl/internal/pool"
	"github.com/arloliu/go-wpactl/internal/task"
	"github.com/arloliu/go-wpactl/supervise"
)

// eventBacklog bounds how many events the receiver may queue ahead of a slow
// consumer before it blocks.
const eventBacklog = 16

// monitorEvent is one received datagram, or the receive failure that ended
// the stream.
type monitorEvent struct {
	data []byte
	err  error
}

// channel bundles the resources of one connected control session: the
// command and monitor connections, the event queue fed by the receiver task,
// and the cancellation plumbing.
type channel struct {
	cmd  *ctrl.Conn
	mon  *ctrl.Conn
	path string

	// events carries datagrams from the receiver task to WaitEvent. The
	// receiver closes it after the first terminal condition.
	events chan monitorEvent

	// cancel carries the command-timeout wakeup to a blocked WaitEvent.
	// Capacity 1 with non-blocking sends collapses repeated signals.
	cancel chan struct{}

	// done is closed by Disconnect and fans out to everything still blocked
	// on this channel.
	done chan struct{}

	taskMgr *task.Manager
}

// signalCancel wakes a blocked WaitEvent without tearing the channel down.
func (ch *channel) signalCancel() {
	select {
	case ch.cancel <- struct{}{}:
	default:
	}
}

// sendEvent forwards one monitor event, giving up when the channel is torn
// down before a consumer takes it.
func (ch *channel) sendEvent(ev monitorEvent) bool {
	select {
	case ch.events <- ev:
		return true
	case <-ch.done:
		return false
	}
}

// Connect establishes the control channel to the daemon.
//
// It opens the command and monitor connections to the resolved control
// endpoint, attaches the monitor connection to the event stream, and starts
// the receiver task. Connect is all-or-nothing: on any failure every resource
// acquired so far is released in reverse order and the manager stays
// disconnected.
func (m *Manager) Connect(ctx context.Context) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if m.channel != nil {
		return ErrAlreadyConnected
	}

	status, err := m.cfg.supervisor.Status(ctx, m.cfg.service)
	if err != nil {
		return fmt.Errorf("query service status: %w", err)
	}
	if status != supervise.StatusRunning {
		return fmt.Errorf("%w: service is %s", ErrNotRunning, status)
	}

	path := m.cfg.ControlPath()

	opts := []ctrl.Option{
		ctrl.WithRequestTimeout(m.cfg.requestTimeout),
		ctrl.WithLogger(m.logger),
	}
	if m.cfg.clientDir != "" {
		opts = append(opts, ctrl.WithClientDir(m.cfg.clientDir))
	}

	cmdConn, err := ctrl.Open(path, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	monConn, err := ctrl.Open(path, opts...)
	if err != nil {
		_ = cmdConn.Close()
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if err := monConn.Attach(ctx); err != nil {
		_ = monConn.Close()
		_ = cmdConn.Close()
		return fmt.Errorf("%w: %w", ErrAttachFailed, err)
	}

	ch := &channel{
		cmd:     cmdConn,
		mon:     monConn,
		path:    path,
		events:  make(chan monitorEvent, eventBacklog),
		cancel:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		taskMgr: task.NewManager(context.Background(), m.logger),
	}

	if err := ch.taskMgr.Start("monitorReceiver", func() bool { return m.pumpMonitor(ch) }); err != nil {
		_ = monConn.Close()
		_ = cmdConn.Close()
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if m.cfg.autoPing {
		_, err := ch.taskMgr.StartInterval("keepalivePing", func() bool { return m.keepalivePing(ch) }, m.cfg.pingInterval, false)
		if err != nil {
			m.logger.Warn("failed to start keepalive task", "error", err)
		}
	}

	m.channel = ch
	m.stateMgr.set(Connected)
	m.metrics.incConnects()
	m.logger.Info("control channel connected", "path", path)

	return nil
}

// Disconnect tears the control channel down.
//
// It closes both connections, which unblocks the receiver task and any
// in-flight command, stops the channel's tasks, and reports Disconnected.
// A concurrently blocked WaitEvent returns a synthetic "connection closed"
// event. Disconnecting a disconnected manager is a no-op.
func (m *Manager) Disconnect() error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	ch := m.channel
	if ch == nil {
		return nil
	}

	close(ch.done)
	_ = ch.mon.Close()
	_ = ch.cmd.Close()

	ch.taskMgr.Stop()
	ch.taskMgr.Wait()

	m.channel = nil
	m.stateMgr.set(Disconnected)
	m.metrics.incDisconnects()
	m.logger.Info("control channel disconnected", "path", ch.path)

	return nil
}

// pumpMonitor is the receiver task body: one blocking receive on the monitor
// connection, forwarded to the event queue. It stops after the first terminal
// condition and closes the queue so pending and future waits observe the end
// of the stream.
func (m *Manager) pumpMonitor(ch *channel) bool {
	buf := pool.GetBuffer()[:pool.BufferSize]
	n, err := ch.mon.Recv(buf)

	if err != nil {
		pool.PutBuffer(buf)
		if !errors.Is(err, ctrl.ErrClosed) && !errors.Is(err, net.ErrClosed) {
			ch.sendEvent(monitorEvent{err: err})
		}
		close(ch.events)

		return false
	}

	if n == 0 {
		pool.PutBuffer(buf)
		ch.sendEvent(monitorEvent{})
		close(ch.events)

		return false
	}

	data := make([]byte, n)
	copy(data, buf[:n])
	pool.PutBuffer(buf)

	m.metrics.incEventsReceived()

	return ch.sendEvent(monitorEvent{data: data})
}

// keepalivePing is the interval task body probing the daemon over the command
// connection. Failures keep the task alive; the channel learns about a dead
// daemon through the cancellation signal a timed-out ping leaves behind.
func (m *Manager) keepalivePing(ch *channel) bool {
	err := m.ping(context.Background(), ch)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ctrl.ErrClosed):
		return false
	case errors.Is(err, ErrCommandTimeout):
		// request already logged and signaled cancellation.
		return true
	default:
		m.logger.Warn("keepalive ping failed", "error", err)
		return true
	}
}
