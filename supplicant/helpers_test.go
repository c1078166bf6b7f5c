package supplicant

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-wpactl/supervise"
)

// fakeDaemon is an in-process control daemon speaking the wire protocol over
// a unixgram socket. Replies can be scripted per command; unscripted commands
// get wpa_supplicant's "UNKNOWN COMMAND" reply.
type fakeDaemon struct {
	conn *net.UnixConn
	path string
	dir  string

	mu           sync.Mutex
	attached     *net.UnixAddr
	replies      map[string]string
	rejectAttach bool
}

// newFakeDaemon listens on <dir>/<iface>, matching the control path a Manager
// with WithControlDir(dir) resolves.
func newFakeDaemon(t *testing.T, dir, iface string) *fakeDaemon {
	t.Helper()

	path := filepath.Join(dir, iface)
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	require.NoError(t, err)

	d := &fakeDaemon{conn: conn, path: path, dir: dir, replies: make(map[string]string)}
	go d.serve()
	t.Cleanup(func() { _ = conn.Close() })

	return d
}

// script overrides the reply for one command. An empty reply makes the daemon
// stay silent, which is how command timeouts are provoked.
func (d *fakeDaemon) script(cmd, reply string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[cmd] = reply
}

// refuseAttach makes the daemon answer event subscriptions with FAIL.
func (d *fakeDaemon) refuseAttach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejectAttach = true
}

func (d *fakeDaemon) serve() {
	buf := make([]byte, 4096)
	for {
		n, addr, err := d.conn.ReadFromUnix(buf)
		if err != nil {
			return
		}

		cmd := string(buf[:n])

		d.mu.Lock()
		reply, scripted := d.replies[cmd]
		reject := d.rejectAttach
		if cmd == "ATTACH" && !reject {
			d.attached = addr
		}
		d.mu.Unlock()

		if !scripted {
			switch cmd {
			case "PING":
				reply = "PONG\n"
			case "ATTACH":
				reply = "OK\n"
				if reject {
					reply = "FAIL\n"
				}
			case "DETACH":
				reply = "OK\n"
			default:
				reply = "UNKNOWN COMMAND\n"
			}
		}

		if reply != "" {
			_, _ = d.conn.WriteToUnix([]byte(reply), addr)
		}
	}
}

// pushEvent sends an unsolicited event datagram to the attached monitor
// connection. An empty string sends the zero-length EOF datagram.
func (d *fakeDaemon) pushEvent(t *testing.T, ev string) {
	t.Helper()

	d.mu.Lock()
	addr := d.attached
	d.mu.Unlock()

	require.NotNil(t, addr, "no monitor connection attached yet")
	_, err := d.conn.WriteToUnix([]byte(ev), addr)
	require.NoError(t, err)
}

// newTestChannel builds a fake daemon plus a Manager configured against it
// with timings shrunk to test scale. The daemon is reported running; the
// manager is not yet connected.
func newTestChannel(t *testing.T, opts ...Option) (*Manager, *fakeDaemon, *supervise.Store) {
	t.Helper()

	dir := t.TempDir()
	daemon := newFakeDaemon(t, dir, testIface)

	store := supervise.NewStore()
	store.SetStatus(testService, supervise.StatusRunning)

	base := []Option{
		WithSupervisor(store),
		WithControlDir(dir),
		WithClientDir(dir),
		WithRequestTimeout(100 * time.Millisecond),
		WithEventWaitInterval(50 * time.Millisecond),
	}

	cfg, err := NewConfig(testService, testIface, append(base, opts...)...)
	require.NoError(t, err)

	return NewManager(cfg), daemon, store
}

// connect establishes the channel and registers its teardown.
func connect(t *testing.T, m *Manager) {
	t.Helper()

	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(func() { _ = m.Disconnect() })
}

// localSockets returns the wpactl client socket files currently in dir.
func localSockets(t *testing.T, dir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "wpactl_*"))
	require.NoError(t, err)

	return matches
}
