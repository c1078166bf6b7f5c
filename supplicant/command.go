package supplicant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arloliu/go-wpactl/ctrl"
)

var failPrefix = []byte("FAIL")

// Command sends one control command to the daemon and returns the reply text
// with its trailing newline trimmed.
//
// A daemon reply beginning with "FAIL" fails with ErrCommandRejected. A
// missing reply fails with ErrCommandTimeout and additionally wakes a blocked
// WaitEvent, since a daemon that stopped answering commands will not deliver
// events either. Commands on a disconnected manager fail with ErrNotConnected.
func (m *Manager) Command(ctx context.Context, cmd string) (string, error) {
	ch := m.activeChannel()
	if ch == nil {
		m.logger.Debug("command without active channel", "cmd", cmd)
		return "", ErrNotConnected
	}

	return m.request(ctx, ch, cmd)
}

// Ping probes the daemon with a PING command and verifies the PONG reply.
func (m *Manager) Ping(ctx context.Context) error {
	ch := m.activeChannel()
	if ch == nil {
		m.logger.Debug("ping without active channel")
		return ErrNotConnected
	}

	return m.ping(ctx, ch)
}

func (m *Manager) ping(ctx context.Context, ch *channel) error {
	reply, err := m.request(ctx, ch, "PING")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, "PONG") {
		return fmt.Errorf("ping reply %q: %w", reply, ErrCommandRejected)
	}

	return nil
}

// request performs one solicited exchange on the given channel and classifies
// the outcome.
func (m *Manager) request(ctx context.Context, ch *channel, cmd string) (string, error) {
	m.metrics.incCommandsSent()

	reply, err := ch.cmd.Request(ctx, cmd)
	if err != nil {
		if errors.Is(err, ctrl.ErrTimeout) {
			m.metrics.incCommandTimeouts()
			ch.signalCancel()
			m.logger.Warn("command timed out", "cmd", cmd)

			return "", fmt.Errorf("command %q: %w", cmd, ErrCommandTimeout)
		}

		return "", fmt.Errorf("command %q: %w", cmd, err)
	}

	if bytes.HasPrefix(reply, failPrefix) {
		m.metrics.incCommandRejects()

		return "", fmt.Errorf("command %q: %w", cmd, ErrCommandRejected)
	}

	return string(bytes.TrimSuffix(reply, []byte("\n"))), nil
}
