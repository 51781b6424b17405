package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryStartAndRelease(t *testing.T) {
	reg := NewRegistry()

	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, StatusStreaming, turn.Machine.Status())
	assert.Equal(t, 1, reg.Active())

	turn.Release(StatusComplete)
	assert.Equal(t, 0, reg.Active())

	// The terminal machine stays queryable as a snapshot.
	m := reg.Get("thread-1")
	require.NotNil(t, m)
	assert.Equal(t, StatusComplete, m.Status())
}

func TestRegistryRejectsSecondSessionForThread(t *testing.T) {
	reg := NewRegistry()

	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)

	_, err = reg.Start(context.Background(), "thread-1")
	assert.ErrorIs(t, err, ErrAlreadyStreaming)

	// Other threads are unaffected.
	other, err := reg.Start(context.Background(), "thread-2")
	require.NoError(t, err)
	other.Release(StatusComplete)

	// Once the first turn ends, the thread accepts a new one.
	turn.Release(StatusComplete)
	next, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)
	next.Release(StatusComplete)
}

func TestRegistryStartOnlyOneWinnerUnderContention(t *testing.T) {
	reg := NewRegistry()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Start(context.Background(), "thread-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, rejections int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrAlreadyStreaming)
			rejections++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, rejections)
}

func TestRegistryCancelWaitsForReader(t *testing.T) {
	reg := NewRegistry()

	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)

	readerDone := make(chan struct{})
	go func() {
		// Simulated transport reader: blocks until the turn context is
		// cancelled, then releases.
		<-turn.Ctx.Done()
		time.Sleep(10 * time.Millisecond)
		turn.Release(StatusCancelled)
		close(readerDone)
	}()

	require.NoError(t, reg.Cancel("thread-1"))

	// Cancel must not return before the reader released the turn.
	select {
	case <-readerDone:
	default:
		t.Fatal("Cancel returned before the reader confirmed shutdown")
	}

	m := reg.Get("thread-1")
	require.NotNil(t, m)
	assert.Equal(t, StatusCancelled, m.Status())
	assert.Equal(t, 0, reg.Active())
}

func TestRegistryCancelWithoutActiveSession(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Cancel("thread-1"), ErrNoActiveSession)

	// A retired session is not cancellable either.
	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)
	turn.Release(StatusComplete)
	assert.ErrorIs(t, reg.Cancel("thread-1"), ErrNoActiveSession)
}

func TestRegistryStartDropsPreviousSnapshot(t *testing.T) {
	reg := NewRegistry()

	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)
	turn.Release(StatusError)
	require.Equal(t, StatusError, reg.Get("thread-1").Status())

	next, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, StatusStreaming, reg.Get("thread-1").Status())
	next.Release(StatusComplete)
}

func TestRegistryDrop(t *testing.T) {
	reg := NewRegistry()

	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)
	turn.Release(StatusComplete)
	require.NotNil(t, reg.Get("thread-1"))

	reg.Drop("thread-1")
	assert.Nil(t, reg.Get("thread-1"))
}

func TestTurnReleaseIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	turn, err := reg.Start(context.Background(), "thread-1")
	require.NoError(t, err)

	turn.Release(StatusComplete)
	assert.NotPanics(t, func() { turn.Release(StatusError) })
	assert.Equal(t, StatusComplete, reg.Get("thread-1").Status())
}
