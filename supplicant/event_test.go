package supplicant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-wpactl/supervise"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "interface prefix with priority tag",
			raw:      "IFNAME=wlan0 <3>CTRL-EVENT-CONNECTED",
			expected: "IFNAME=wlan0 CTRL-EVENT-CONNECTED",
		},
		{
			name:     "interface prefix with multi-digit tag",
			raw:      "IFNAME=wlan0 <10>CTRL-EVENT-SCAN-RESULTS",
			expected: "IFNAME=wlan0 CTRL-EVENT-SCAN-RESULTS",
		},
		{
			name:     "interface prefix without tag",
			raw:      "IFNAME=wlan0 CTRL-EVENT-SCAN-RESULTS",
			expected: "IFNAME=wlan0 CTRL-EVENT-SCAN-RESULTS",
		},
		{
			name:     "interface prefix without payload",
			raw:      "IFNAME=wlan0",
			expected: "CTRL-EVENT-IGNORE ",
		},
		{
			name:     "interface prefix with empty payload",
			raw:      "IFNAME=wlan0 ",
			expected: "IFNAME=wlan0 ",
		},
		{
			name:     "interface prefix with unterminated tag",
			raw:      "IFNAME=wlan0 <3CTRL-EVENT-CONNECTED",
			expected: "IFNAME=wlan0 <3CTRL-EVENT-CONNECTED",
		},
		{
			name:     "interface prefix with empty tag",
			raw:      "IFNAME=wlan0 <>CTRL-EVENT-CONNECTED",
			expected: "IFNAME=wlan0 CTRL-EVENT-CONNECTED",
		},
		{
			name:     "interface prefix with bare open bracket at end",
			raw:      "IFNAME=wlan0 <",
			expected: "IFNAME=wlan0 <",
		},
		{
			name:     "tag not directly after prefix stays",
			raw:      "IFNAME=wlan0 CTRL-EVENT-BSS <3>extra",
			expected: "IFNAME=wlan0 CTRL-EVENT-BSS <3>extra",
		},
		{
			name:     "bare priority tag",
			raw:      "<2>CTRL-EVENT-DISCONNECTED",
			expected: "CTRL-EVENT-DISCONNECTED",
		},
		{
			name:     "bare priority tag only",
			raw:      "<2>",
			expected: "",
		},
		{
			name:     "bare unterminated tag",
			raw:      "<2CTRL-EVENT-DISCONNECTED",
			expected: "<2CTRL-EVENT-DISCONNECTED",
		},
		{
			name:     "plain message",
			raw:      "CTRL-EVENT-SCAN-RESULTS",
			expected: "CTRL-EVENT-SCAN-RESULTS",
		},
		{
			name:     "empty message",
			raw:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Normalize may rewrite its input in place, feed it a copy.
			result := Normalize([]byte(tt.raw))
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	corpus := []string{
		"IFNAME=wlan0 <3>CTRL-EVENT-CONNECTED",
		"IFNAME=wlan0 CTRL-EVENT-SCAN-RESULTS",
		"IFNAME=wlan0",
		"IFNAME=wlan0 ",
		"IFNAME=wlan0 <3CTRL-EVENT-CONNECTED",
		"<2>CTRL-EVENT-DISCONNECTED",
		"<2CTRL-EVENT-DISCONNECTED",
		"CTRL-EVENT-SCAN-RESULTS",
		"",
	}

	for _, raw := range corpus {
		once := string(Normalize([]byte(raw)))
		twice := string(Normalize([]byte(once)))
		assert.Equal(t, once, twice, "raw=%q", raw)
	}
}

func TestNormalize_NeverGrows(t *testing.T) {
	inputs := []string{
		"IFNAME=wlan0 <3>CTRL-EVENT-CONNECTED",
		"<2>CTRL-EVENT-DISCONNECTED",
		"IFNAME=wlan0 X",
		"X",
	}

	for _, raw := range inputs {
		result := Normalize([]byte(raw))
		assert.LessOrEqual(t, len(result), len(raw), "raw=%q", raw)
	}

	// The no-payload replacement is the one case that swaps the buffer.
	result := Normalize([]byte("IFNAME=w"))
	require.Equal(t, EventIgnore, string(result))
}

func TestIsTerminating(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsTerminating("CTRL-EVENT-TERMINATING - signal 15 received"))
	assert.True(IsTerminating("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed"))
	assert.False(IsTerminating("CTRL-EVENT-CONNECTED"))
	assert.False(IsTerminating("IFNAME=wlan0 CTRL-EVENT-CONNECTED"))
	assert.False(IsTerminating("IFNAME=wlan0"))
	assert.False(IsTerminating(""))
}

func TestIsIgnore(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsIgnore("CTRL-EVENT-IGNORE "))
	assert.True(IsIgnore("IFNAME=wlan0 CTRL-EVENT-IGNORE "))
	assert.False(IsIgnore("CTRL-EVENT-IGNORED"))
	assert.False(IsIgnore("CTRL-EVENT-CONNECTED"))
	assert.False(IsIgnore(""))
}

func TestSyntheticEventFormat(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)

	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed",
		m.syntheticEvent(reasonClosed))
	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - recv error",
		m.syntheticEvent(reasonRecvError))
	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - signal 0 received",
		m.syntheticEvent(reasonSignalZero))

	require.True(IsTerminating(m.syntheticEvent(reasonClosed)))
	require.Equal(uint64(4), m.Metrics().EventsSynthesized.Load())
}

func TestWaitEvent_NotConnected(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t)

	ev := m.WaitEvent(context.Background())
	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed", ev)
}

func TestWaitEvent_DeliversNormalizedEvents(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t, WithEventWaitInterval(10*time.Second))
	connect(t, m)

	daemon.pushEvent(t, "IFNAME=wlan0 <3>CTRL-EVENT-CONNECTED")
	require.Equal("IFNAME=wlan0 CTRL-EVENT-CONNECTED", m.WaitEvent(context.Background()))

	daemon.pushEvent(t, "<2>CTRL-EVENT-DISCONNECTED")
	require.Equal("CTRL-EVENT-DISCONNECTED", m.WaitEvent(context.Background()))

	require.Equal(uint64(2), m.Metrics().EventsReceived.Load())
	require.Equal(uint64(0), m.Metrics().EventsSynthesized.Load())
}

func TestWaitEvent_DaemonEOF(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t, WithEventWaitInterval(10*time.Second))
	connect(t, m)

	// A zero-length datagram is the daemon's EOF marker.
	daemon.pushEvent(t, "")

	ev := m.WaitEvent(context.Background())
	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - signal 0 received", ev)
}

func TestWaitEvent_LivenessDetectsStoppedDaemon(t *testing.T) {
	require := require.New(t)

	m, _, store := newTestChannel(t, WithEventWaitInterval(30*time.Millisecond))
	connect(t, m)

	store.SetStatus(testService, supervise.StatusStopped)

	begin := time.Now()
	ev := m.WaitEvent(context.Background())
	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed", ev)
	require.Less(time.Since(begin), 2*time.Second)
	require.GreaterOrEqual(m.Metrics().LivenessChecks.Load(), uint64(1))
}

func TestWaitEvent_QuietDaemonKeepsWaiting(t *testing.T) {
	require := require.New(t)

	m, daemon, _ := newTestChannel(t, WithEventWaitInterval(20*time.Millisecond))
	connect(t, m)

	evCh := make(chan string, 1)
	go func() {
		evCh <- m.WaitEvent(context.Background())
	}()

	// Several liveness probes pass while the daemon is alive but silent; the
	// wait must ride through them without synthesizing anything.
	time.Sleep(150 * time.Millisecond)
	select {
	case ev := <-evCh:
		t.Fatalf("WaitEvent returned %q for an alive but quiet daemon", ev)
	default:
	}
	require.GreaterOrEqual(m.Metrics().LivenessChecks.Load(), uint64(2))

	daemon.pushEvent(t, "<2>CTRL-EVENT-SCAN-RESULTS")

	select {
	case ev := <-evCh:
		require.Equal("CTRL-EVENT-SCAN-RESULTS", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEvent missed the event after liveness probes")
	}
}

func TestWaitEvent_ContextCanceled(t *testing.T) {
	require := require.New(t)

	m, _, _ := newTestChannel(t, WithEventWaitInterval(10*time.Second))
	connect(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	begin := time.Now()
	ev := m.WaitEvent(ctx)
	require.Equal("IFNAME=wlan0 CTRL-EVENT-TERMINATING - connection closed", ev)
	require.Less(time.Since(begin), 2*time.Second)
}
