package face

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatchLoadsOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	l := NewLatch(func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Acquire(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return l.State() == LatchLoading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, LatchReady, l.State())

	require.NoError(t, l.Acquire(context.Background()))
	assert.EqualValues(t, 1, calls.Load())
}

func TestLatchFailureResets(t *testing.T) {
	boom := errors.New("weights missing")
	var calls atomic.Int32
	l := NewLatch(func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	})

	err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, LatchUninitialized, l.State())

	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, LatchReady, l.State())
	assert.EqualValues(t, 2, calls.Load())
}

func TestLatchPanicReleasesLatch(t *testing.T) {
	var calls atomic.Int32
	l := NewLatch(func(context.Context) error {
		if calls.Add(1) == 1 {
			panic("cgo abort")
		}
		return nil
	})

	err := l.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cgo abort")
	assert.Equal(t, LatchUninitialized, l.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, LatchReady, l.State())
	assert.EqualValues(t, 2, calls.Load())
}

func TestLatchWaitersShareFailure(t *testing.T) {
	boom := errors.New("bad file")
	release := make(chan struct{})
	var calls atomic.Int32
	l := NewLatch(func(context.Context) error {
		calls.Add(1)
		<-release
		return boom
	})

	first := make(chan error, 1)
	go func() { first <- l.Acquire(context.Background()) }()
	require.Eventually(t, func() bool { return l.State() == LatchLoading }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- l.Acquire(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-first, boom)
	assert.ErrorIs(t, <-second, boom)
	assert.EqualValues(t, 1, calls.Load())
}

func TestLatchWaiterContextCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	l := NewLatch(func(context.Context) error {
		<-release
		return nil
	})

	go func() { _ = l.Acquire(context.Background()) }()
	require.Eventually(t, func() bool { return l.State() == LatchLoading }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)
	assert.Equal(t, LatchLoading, l.State())
}

func TestLatchStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", LatchUninitialized.String())
	assert.Equal(t, "loading", LatchLoading.String())
	assert.Equal(t, "ready", LatchReady.String())
}
