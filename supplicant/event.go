package supplicant

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/arloliu/go-wpactl/internal/pool"
	"github.com/arloliu/go-wpactl/supervise"
)

// Event markers in the daemon's control event vocabulary.
const (
	// EventTerminating marks the daemon-is-going-away event. WaitEvent
	// synthesizes it locally for terminal conditions of the wait loop.
	EventTerminating = "CTRL-EVENT-TERMINATING"

	// EventIgnore replaces malformed interface-prefixed messages that carry
	// no payload. The trailing space is part of the marker.
	EventIgnore = "CTRL-EVENT-IGNORE "
)

// Reasons carried by synthetic terminating events.
const (
	reasonClosed     = "connection closed"
	reasonRecvError  = "recv error"
	reasonSignalZero = "signal 0 received"
)

var ifnamePrefix = []byte("IFNAME=")

// Normalize rewrites one raw event datagram into the canonical form consumers
// match on. The returned slice may alias raw's backing array; only the
// no-payload replacement allocates.
//
// Messages prefixed with "IFNAME=<iface> " have their priority tag "<N>"
// excised, keeping the interface prefix. An interface prefix without any
// payload is replaced by the EventIgnore marker. Messages starting with a
// bare priority tag are returned without it. A tag missing its closing '>'
// leaves the message unchanged; Normalize never scans past the end of raw.
func Normalize(raw []byte) []byte {
	if bytes.HasPrefix(raw, ifnamePrefix) {
		space := bytes.IndexByte(raw, ' ')
		if space < 0 {
			return []byte(EventIgnore)
		}

		if space+1 < len(raw) && raw[space+1] == '<' {
			end := bytes.IndexByte(raw[space+2:], '>')
			if end < 0 {
				return raw
			}

			tagEnd := space + 2 + end + 1
			n := copy(raw[space+1:], raw[tagEnd:])

			return raw[:space+1+n]
		}

		return raw
	}

	if len(raw) > 0 && raw[0] == '<' {
		if end := bytes.IndexByte(raw, '>'); end >= 0 {
			return raw[end+1:]
		}
	}

	return raw
}

// IsTerminating reports whether ev is a terminating event, tolerating an
// interface prefix.
func IsTerminating(ev string) bool {
	return strings.HasPrefix(stripIfacePrefix(ev), EventTerminating)
}

// IsIgnore reports whether ev is the ignore marker, tolerating an interface
// prefix.
func IsIgnore(ev string) bool {
	return strings.HasPrefix(stripIfacePrefix(ev), EventIgnore)
}

func stripIfacePrefix(ev string) string {
	if !strings.HasPrefix(ev, "IFNAME=") {
		return ev
	}

	if _, rest, ok := strings.Cut(ev, " "); ok {
		return rest
	}

	return ev
}

// WaitEvent blocks until the next event arrives on the monitor connection
// and returns it in normalized form.
//
// WaitEvent never fails; every terminal condition is reported as a synthetic
// terminating event so consumers handle daemon death and local teardown
// through the same code path as real events:
//
//   - "connection closed": channel disconnected, caller context done, a
//     command timeout signaled cancellation, or the daemon was observed
//     stopped during a liveness probe.
//   - "recv error": the monitor connection failed.
//   - "signal 0 received": the daemon sent an empty datagram (EOF marker).
//
// A quiet but alive daemon never produces a synthetic event: the liveness
// probe re-arms and WaitEvent keeps waiting.
func (m *Manager) WaitEvent(ctx context.Context) string {
	ch := m.activeChannel()
	if ch == nil {
		return m.syntheticEvent(reasonClosed)
	}

	timer := pool.AcquireTimer(m.cfg.eventWaitInterval)
	defer pool.ReleaseTimer(timer)

	for {
		select {
		case <-ctx.Done():
			return m.syntheticEvent(reasonClosed)

		case <-ch.done:
			return m.syntheticEvent(reasonClosed)

		case <-ch.cancel:
			m.logger.Debug("event wait canceled by command timeout")
			return m.syntheticEvent(reasonClosed)

		case ev, ok := <-ch.events:
			if !ok {
				return m.syntheticEvent(reasonClosed)
			}
			if ev.err != nil {
				m.logger.Warn("monitor receive failed", "error", ev.err)
				return m.syntheticEvent(reasonRecvError)
			}
			if len(ev.data) == 0 {
				return m.syntheticEvent(reasonSignalZero)
			}

			if ev.data[0] != '<' && !bytes.HasPrefix(ev.data, ifnamePrefix) {
				m.logger.Warn("unrecognized event format", "event", string(ev.data))
			}

			return string(Normalize(ev.data))

		case <-timer.C:
			m.metrics.incLivenessChecks()
			status, err := m.cfg.supervisor.Status(ctx, m.cfg.service)
			if err == nil && status == supervise.StatusStopped {
				m.logger.Warn("daemon stopped while waiting for events", "service", m.cfg.service)
				return m.syntheticEvent(reasonClosed)
			}

			timer.Reset(m.cfg.eventWaitInterval)
		}
	}
}

// syntheticEvent renders a locally generated terminating event for the
// managed interface.
func (m *Manager) syntheticEvent(reason string) string {
	m.metrics.incEventsSynthesized()

	return fmt.Sprintf("IFNAME=%s %s - %s", m.cfg.iface, EventTerminating, reason)
}
