package face

import (
	"context"
	"fmt"
	"sync"
)

// LatchState is the lifecycle of a model latch.
type LatchState int

const (
	LatchUninitialized LatchState = iota
	LatchLoading
	LatchReady
)

func (s LatchState) String() string {
	switch s {
	case LatchLoading:
		return "loading"
	case LatchReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

type loadAttempt struct {
	done chan struct{}
	err  error
}

// Latch runs a load function at most once at a time and remembers success.
// The first Acquire performs the load; concurrent callers wait for that same
// attempt. A failed attempt is reported to everyone waiting on it and the
// latch returns to uninitialized, so the next Acquire starts a new load.
type Latch struct {
	load func(ctx context.Context) error

	mu      sync.Mutex
	state   LatchState
	current *loadAttempt
}

// NewLatch wraps load.
func NewLatch(load func(ctx context.Context) error) *Latch {
	return &Latch{load: load}
}

// State reports the current lifecycle state.
func (l *Latch) State() LatchState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acquire returns once the load has completed. Waiters may give up when ctx
// is done; the load itself is not cancelled by them, nor by the caller that
// started it.
func (l *Latch) Acquire(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case LatchReady:
		l.mu.Unlock()
		return nil
	case LatchLoading:
		a := l.current
		l.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a := &loadAttempt{done: make(chan struct{})}
	l.state = LatchLoading
	l.current = a
	l.mu.Unlock()

	return l.run(ctx, a)
}

// run performs the load for attempt a. A panicking load counts as a failed
// attempt so waiters are released and the latch can be retried.
func (l *Latch) run(ctx context.Context, a *loadAttempt) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("model load panicked: %v", p)
		}
		l.mu.Lock()
		a.err = err
		if err != nil {
			l.state = LatchUninitialized
		} else {
			l.state = LatchReady
		}
		l.current = nil
		close(a.done)
		l.mu.Unlock()
	}()
	return l.load(context.WithoutCancel(ctx))
}
