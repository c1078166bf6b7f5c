package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-wpactl/logger"
)

func newMockLogger() *logger.MockLogger {
	mockLogger := logger.NewMockLogger()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Return()
	mockLogger.On("Error", mock.Anything, mock.Anything).Return()
	return mockLogger
}

func TestManager_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewManager(ctx, newMockLogger())

	var iterations atomic.Int32
	err := taskMgr.Start("testTask", func() bool {
		iterations.Add(1)
		time.Sleep(time.Millisecond)
		return true
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, taskMgr.TaskCount())
	assert.Positive(t, iterations.Load())

	taskMgr.Stop()
	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestManager_StartFuncReturnsFalse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewManager(ctx, newMockLogger())

	err := taskMgr.Start("oneShot", func() bool { return false })
	require.NoError(t, err)

	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestManager_StartReceiver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewManager(ctx, newMockLogger())

	dataChan := make(chan struct{}, 1)
	var cleaned atomic.Bool

	err := taskMgr.StartReceiver("testReceiver", func() bool {
		_, ok := <-dataChan
		return ok
	}, func() {
		cleaned.Store(true)
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, taskMgr.TaskCount())

	// closing the source terminates the receive loop and runs cleanup
	close(dataChan)
	taskMgr.Wait()

	assert.Equal(t, 0, taskMgr.TaskCount())
	assert.True(t, cleaned.Load())
}

func TestManager_StartInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewManager(ctx, newMockLogger())

	var runs atomic.Int32
	ticker, err := taskMgr.StartInterval("testInterval", func() bool {
		runs.Add(1)
		return true
	}, 10*time.Millisecond, true)
	require.NoError(t, err)
	require.NotNil(t, ticker)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, taskMgr.TaskCount())
	// runNow plus several ticks
	assert.GreaterOrEqual(t, runs.Load(), int32(3))

	taskMgr.Stop()
	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestManager_StartIntervalValidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewManager(ctx, newMockLogger())

	_, err := taskMgr.StartInterval("bad", func() bool { return true }, 0, false)
	require.Error(t, err)

	_, err = taskMgr.StartInterval("dup", func() bool { return true }, time.Hour, false)
	require.NoError(t, err)
	_, err = taskMgr.StartInterval("dup", func() bool { return true }, time.Hour, false)
	require.Error(t, err)

	taskMgr.Stop()
	taskMgr.Wait()
}

func TestManager_PanicRecovery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockLogger := newMockLogger()
	taskMgr := NewManager(ctx, mockLogger)

	err := taskMgr.Start("panicky", func() bool {
		panic("boom")
	})
	require.NoError(t, err)

	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())
	mockLogger.AssertCalled(t, "Error", "panic in task loop", mock.Anything)
}

func TestManager_StartAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewManager(ctx, newMockLogger())

	taskMgr.Stop()
	err := taskMgr.Start("late", func() bool { return true })
	require.Error(t, err)

	// Wait recreates the context from the parent, so tasks can start again.
	taskMgr.Wait()
	err = taskMgr.Start("reborn", func() bool { return false })
	require.NoError(t, err)
	taskMgr.Wait()
}
