package testutil

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// MockSource is a mock implementation of the fetcher.Source interface for testing
type MockSource[T any] struct {
	FetchFunc func(ctx context.Context) (T, error)
	calls     atomic.Int64
}

// Fetch implements the fetcher.Source interface
func (m *MockSource[T]) Fetch(ctx context.Context) (T, error) {
	m.calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	var zero T
	return zero, nil
}

// Calls returns how many times Fetch was called
func (m *MockSource[T]) Calls() int64 {
	return m.calls.Load()
}

// NewMockSource creates a simple mock source with a predefined value and error
func NewMockSource[T any](value T, err error) *MockSource[T] {
	return &MockSource[T]{
		FetchFunc: func(ctx context.Context) (T, error) {
			return value, err
		},
	}
}

// MockJob is a mock implementation of the poll.Job interface for testing
type MockJob struct {
	JobName     string
	JobInterval time.Duration
	TickFunc    func(ctx context.Context, w io.Writer) error
	ticks       atomic.Int64
}

// Name implements the poll.Job interface
func (m *MockJob) Name() string {
	if m.JobName == "" {
		return "mock"
	}
	return m.JobName
}

// Interval implements the poll.Job interface
func (m *MockJob) Interval() time.Duration {
	return m.JobInterval
}

// Tick implements the poll.Job interface
func (m *MockJob) Tick(ctx context.Context, w io.Writer) error {
	m.ticks.Add(1)
	if m.TickFunc != nil {
		return m.TickFunc(ctx, w)
	}
	fmt.Fprintf(w, "%s tick\n", m.Name())
	return nil
}

// Ticks returns how many times Tick was called
func (m *MockJob) Ticks() int64 {
	return m.ticks.Load()
}

// Interrupt is a manually triggered coordinator.Interrupt.
type Interrupt struct {
	ch  chan struct{}
	err error
}

// NewInterrupt creates an interrupt that fires when Trigger is called.
func NewInterrupt() *Interrupt {
	return &Interrupt{ch: make(chan struct{})}
}

// NewFailingInterrupt creates an interrupt whose Wait returns err immediately.
func NewFailingInterrupt(err error) *Interrupt {
	i := NewInterrupt()
	i.err = err
	close(i.ch)
	return i
}

// Trigger releases Wait. It must be called at most once.
func (i *Interrupt) Trigger() {
	close(i.ch)
}

// Wait implements the coordinator.Interrupt interface
func (i *Interrupt) Wait(ctx context.Context) error {
	select {
	case <-i.ch:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
