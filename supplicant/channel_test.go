package supplicant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-wpactl/supervise"
)

func TestConnectDisconnect(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)

	require.Equal(Disconnected, m.State())

	require.NoError(m.Connect(context.Background()))
	require.Equal(Connected, m.State())
	require.Equal(uint64(1), m.Metrics().Connects.Load())

	require.NoError(m.Disconnect())
	require.Equal(Disconnected, m.State())
	require.Equal(uint64(1), m.Metrics().Disconnects.Load())

	// Disconnecting again is a no-op.
	require.NoError(m.Disconnect())
	require.Equal(uint64(1), m.Metrics().Disconnects.Load())
}

func TestConnect_AlreadyConnected(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)
	connect(t, m)

	require.ErrorIs(m.Connect(context.Background()), ErrAlreadyConnected)
}

func TestConnect_NotRunning(t *testing.T) {
	require := require.New(t)

	m, _, store := newTestChannel(t)
	store.SetStatus(testService, supervise.StatusStopped)

	require.ErrorIs(m.Connect(context.Background()), ErrNotRunning)
	require.Equal(Disconnected, m.State())
}

func TestConnect_OpenFailed(t *testing.T) {
	require := require.New(t)

	// An existing control directory without a daemon socket in it.
	dir := t.TempDir()
	store := supervise.NewStore()
	store.SetStatus(testService, supervise.StatusRunning)

	cfg, err := NewConfig(testService, testIface,
		WithSupervisor(store),
		WithControlDir(dir),
		WithClientDir(dir),
	)
	require.NoError(err)

	m := NewManager(cfg)
	require.ErrorIs(m.Connect(context.Background()), ErrOpenFailed)
	require.Equal(Disconnected, m.State())
}

func TestConnect_AttachRejectedUnwinds(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t)
	daemon.refuseAttach()

	require.ErrorIs(m.Connect(context.Background()), ErrAttachFailed)
	require.Equal(Disconnected, m.State())
	require.Nil(m.activeChannel())

	// Both connections were torn back down, no client sockets remain.
	require.Empty(localSockets(t, daemon.dir))
}

func TestConnect_StateHandlers(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)

	var mu sync.Mutex
	var transitions []ChannelState
	m.OnStateChange(func(_, newState ChannelState) {
		mu.Lock()
		transitions = append(transitions, newState)
		mu.Unlock()
	})

	require.NoError(m.Connect(context.Background()))
	require.NoError(m.Disconnect())

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]ChannelState{Connected, Disconnected}, transitions)
}

func TestDisconnect_UnblocksWaitEvent(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)
	require.NoError(m.Connect(context.Background()))

	evCh := make(chan string, 1)
	go func() {
		evCh <- m.WaitEvent(context.Background())
	}()

	// Let the wait block on the monitor connection first.
	time.Sleep(20 * time.Millisecond)
	require.NoError(m.Disconnect())

	select {
	case ev := <-evCh:
		require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEvent did not return after Disconnect")
	}
}

func TestWaitState_ReleasedByConnect(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)

	waitErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		waitErr <- m.WaitState(ctx, Connected)
	}()

	time.Sleep(20 * time.Millisecond)
	connect(t, m)

	require.NoError(<-waitErr)
}

func TestConnect_AutoPing(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t, WithAutoPing(true), WithPingInterval(50*time.Millisecond))
	connect(t, m)

	// The keepalive task pings on its own, without user commands.
	require.Eventually(func() bool {
		return m.Metrics().CommandsSent.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(m.Disconnect())
	sent := m.Metrics().CommandsSent.Load()

	// Teardown stops the keepalive task.
	time.Sleep(150 * time.Millisecond)
	require.Equal(sent, m.Metrics().CommandsSent.Load())
}
