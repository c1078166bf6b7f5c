package supplicant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t)
	daemon.script("STATUS", "wpa_state=COMPLETED\n")
	connect(t, m)

	reply, err := m.Command(context.Background(), "STATUS")
	require.NoError(err)
	require.Equal("wpa_state=COMPLETED", reply, "trailing newline is trimmed")

	require.Equal(uint64(1), m.Metrics().CommandsSent.Load())
}

func TestCommand_NotConnected(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)

	_, err := m.Command(context.Background(), "STATUS")
	require.ErrorIs(err, ErrNotConnected)

	require.ErrorIs(m.Ping(context.Background()), ErrNotConnected)
}

func TestCommand_Rejected(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t)
	daemon.script("SELECT_NETWORK 9", "FAIL\n")
	connect(t, m)

	_, err := m.Command(context.Background(), "SELECT_NETWORK 9")
	require.ErrorIs(err, ErrCommandRejected)
	require.Equal(uint64(1), m.Metrics().CommandRejects.Load())
}

func TestCommand_Timeout(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t)
	daemon.script("SCAN", "")
	connect(t, m)

	begin := time.Now()
	_, err := m.Command(context.Background(), "SCAN")
	require.ErrorIs(err, ErrCommandTimeout)
	require.Less(time.Since(begin), 2*time.Second)
	require.Equal(uint64(1), m.Metrics().CommandTimeouts.Load())
}

// TestCommandTimeout_WakesWaitEvent exercises the cancellation path: a command
// timeout on one goroutine must release a concurrently blocked WaitEvent with
// a synthetic terminating event, without tearing the channel down.
func TestCommandTimeout_WakesWaitEvent(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t, WithEventWaitInterval(10*time.Second))
	daemon.script("SCAN", "")
	connect(t, m)

	evCh := make(chan string, 1)
	go func() {
		evCh <- m.WaitEvent(context.Background())
	}()

	// Let the wait block before provoking the timeout.
	time.Sleep(20 * time.Millisecond)

	_, err := m.Command(context.Background(), "SCAN")
	require.ErrorIs(err, ErrCommandTimeout)

	select {
	case ev := <-evCh:
		require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEvent did not observe the cancellation signal")
	}

	// The channel survives; only the wait was released.
	require.Equal(Connected, m.State())
	require.NoError(m.Ping(context.Background()))
}

func TestPing(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)
	connect(t, m)

	require.NoError(m.Ping(context.Background()))
}

func TestPing_UnexpectedReply(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t)
	daemon.script("PING", "BUSY\n")
	connect(t, m)

	require.ErrorIs(m.Ping(context.Background()), ErrCommandRejected)
}
