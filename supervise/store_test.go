package supervise

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UnknownService(t *testing.T) {
	store := NewStore()

	status, err := store.Status(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)

	serial, err := store.Serial(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), serial)
}

func TestStore_StartStop(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Start(ctx, "svc"))

	status, err := store.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)

	serial, err := store.Serial(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), serial, "start passes through starting")

	require.NoError(t, store.Stop(ctx, "svc"))

	status, err = store.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, status)

	serial, err = store.Serial(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), serial)
}

func TestStore_SerialBumpsOnUnchangedStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.SetStatus("svc", StatusRunning)
	store.SetStatus("svc", StatusRunning)

	serial, err := store.Serial(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), serial, "re-recording the same status must still bump the serial")
}

func TestStore_StartHook(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.SetStartHook(func(_ context.Context, name string) error {
		store.SetStatus(name, StatusStarting)
		return nil
	})

	require.NoError(t, store.Start(ctx, "svc"))

	status, err := store.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StatusStarting, status, "hook owns all transitions")
}

func TestStore_StartHookError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	hookErr := errors.New("supervisor unavailable")
	store.SetStartHook(func(context.Context, string) error { return hookErr })

	err := store.Start(ctx, "svc")
	require.ErrorIs(t, err, hookErr)

	status, err := store.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)
}

func TestStore_StopHook(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var stopped []string
	store.SetStopHook(func(_ context.Context, name string) error {
		stopped = append(stopped, name)
		store.SetStatus(name, StatusStopped)
		return nil
	})

	require.NoError(t, store.Start(ctx, "svc"))
	require.NoError(t, store.Stop(ctx, "svc"))

	assert.Equal(t, []string{"svc"}, stopped)

	status, err := store.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, status)
}

func TestStore_IndependentServices(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Start(ctx, "a"))

	status, err := store.Status(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)

	serial, err := store.Serial(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), serial)
}
