package poll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketviewer/internal/broadcast"
	"marketviewer/internal/display"
	"marketviewer/internal/fetcher"
	"marketviewer/internal/testutil"
)

const waitFor = 2 * time.Second

func printRenderer() display.Renderer[string] {
	return display.RendererFunc[string](func(w io.Writer, v string, _ *display.State) {
		fmt.Fprintln(w, v)
	})
}

func startLoop(t *testing.T, loop *Loop, obs broadcast.Observer) <-chan Outcome {
	t.Helper()
	done := make(chan Outcome, 1)
	go func() {
		done <- loop.Run(context.Background(), obs)
	}()
	return done
}

func waitOutcome(t *testing.T, done <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-done:
		return o
	case <-time.After(waitFor):
		t.Fatal("loop did not exit")
		return Outcome{}
	}
}

func TestLoop_TicksOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := testutil.NewMockSource("BTC-USD 42000", nil)
	job := NewJob[string]("product:BTC-USD", 10*time.Millisecond, src, printRenderer())

	var out bytes.Buffer
	loop := NewLoop(job, WithClock(clock), WithOutput(&out))
	signaler, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	// Ticks at 10, 20 and 30ms.
	for i := int64(1); i <= 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(10 * time.Millisecond)
		require.Eventually(t, func() bool { return src.Calls() == i }, waitFor, time.Millisecond)
	}

	// 35ms: the fourth timer is armed but has not elapsed.
	clock.BlockUntil(1)
	clock.Advance(5 * time.Millisecond)
	assert.Equal(t, int64(3), src.Calls())
	assert.Equal(t, Running, loop.State())

	signaler.Fire()
	outcome := waitOutcome(t, done)

	assert.Equal(t, Stopped, outcome.State)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, int64(3), outcome.Ticks)
	assert.Equal(t, Stopped, loop.State())

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, int64(3), src.Calls(), "no fetch after the stop signal")
	assert.Equal(t, 3, strings.Count(out.String(), "BTC-USD 42000"))
	assert.True(t, strings.HasSuffix(out.String(), "Stopping product:BTC-USD\n"), "stop line printed last")
}

func TestLoop_FetchErrorsAreNotFatal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transportErr := fetcher.NewNetworkError(errors.New("connection refused"))
	src := testutil.NewMockSource[string]("", transportErr)
	job := NewJob[string]("candles:BTC-USD", time.Second, src, printRenderer())

	var out bytes.Buffer
	loop := NewLoop(job, WithClock(clock), WithOutput(&out))
	signaler, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	for i := int64(1); i <= 5; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
		require.Eventually(t, func() bool { return loop.Errors() == i }, waitFor, time.Millisecond)
	}

	clock.BlockUntil(1)
	assert.Equal(t, Running, loop.State(), "per-tick errors must not end the loop")
	assert.Equal(t, int64(5), loop.Ticks())

	signaler.Fire()
	outcome := waitOutcome(t, done)

	assert.Equal(t, Stopped, outcome.State)
	assert.Equal(t, int64(5), outcome.Errors)
	assert.Equal(t, 5, strings.Count(out.String(), "Error fetching candles:BTC-USD: network error"))
}

func TestLoop_StopBeforeFirstTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := testutil.NewMockSource("x", nil)
	loop := NewLoop(NewJob[string]("x", time.Second, src, printRenderer()), WithClock(clock))

	signaler, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	clock.BlockUntil(1)
	signaler.Fire()
	outcome := waitOutcome(t, done)

	assert.Equal(t, Stopped, outcome.State)
	assert.Zero(t, src.Calls())
}

func TestLoop_StopTakesPrecedenceOverTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := testutil.NewMockSource("x", nil)
	loop := NewLoop(NewJob[string]("x", time.Second, src, printRenderer()), WithClock(clock))

	signaler, observers := broadcast.New()
	obs := observers.Subscribe()

	// Both events are ready before the loop even looks at them.
	signaler.Fire()
	done := startLoop(t, loop, obs)
	clock.Advance(time.Second)

	outcome := waitOutcome(t, done)
	assert.Equal(t, Stopped, outcome.State)
	assert.Zero(t, src.Calls())
}

func TestLoop_NoFetchWhileIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := testutil.NewMockSource("x", nil)
	loop := NewLoop(NewJob[string]("x", time.Minute, src, printRenderer()), WithClock(clock))

	signaler, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	clock.BlockUntil(1)
	clock.Advance(59 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, src.Calls(), "no fetch before the interval elapses")

	signaler.Fire()
	waitOutcome(t, done)
}

func TestLoop_InFlightFetchAbortedOnStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	started := make(chan struct{})
	src := &testutil.MockSource[string]{
		FetchFunc: func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", fetcher.Classify(ctx.Err())
		},
	}

	var out bytes.Buffer
	loop := NewLoop(NewJob[string]("slow", time.Second, src, printRenderer()), WithClock(clock), WithOutput(&out))
	signaler, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("fetch never started")
	}

	signaler.Fire()
	outcome := waitOutcome(t, done)

	assert.Equal(t, Stopped, outcome.State)
	assert.Zero(t, outcome.Errors, "an aborted fetch is not reported as an error")
	assert.NotContains(t, out.String(), "Error fetching")
	assert.Equal(t, "Stopping slow\n", out.String())
}

func TestLoop_FetchErrorsLoggedAtDebug(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := testutil.NewMockSource[string]("", fetcher.ClassifyHTTPError(503))
	job := NewJob[string]("product:BTC-USD", time.Second, src, printRenderer())

	var out, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	loop := NewLoop(job, WithClock(clock), WithOutput(&out), WithLogger(logger))
	signaler, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return loop.Errors() == 1 }, waitFor, time.Millisecond)

	signaler.Fire()
	waitOutcome(t, done)

	assert.Contains(t, out.String(), "Error fetching product:BTC-USD")
	assert.NotContains(t, logs.String(), "fetch failed", "the inline line is the only report at info level")
}

func TestLoop_StopLinePrintedOnContextDone(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var out bytes.Buffer
	loop := NewLoop(&testutil.MockJob{JobName: "trades", JobInterval: time.Second}, WithClock(clock), WithOutput(&out))
	_, observers := broadcast.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- loop.Run(ctx, observers.Subscribe())
	}()

	clock.BlockUntil(1)
	cancel()
	waitOutcome(t, done)
	assert.Equal(t, "Stopping trades\n", out.String())
}

func TestLoop_PanicFailsLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	job := &testutil.MockJob{
		JobName:     "broken",
		JobInterval: time.Second,
		TickFunc: func(ctx context.Context, w io.Writer) error {
			panic("renderer exploded")
		},
	}

	var out bytes.Buffer
	loop := NewLoop(job, WithClock(clock), WithOutput(&out))
	_, observers := broadcast.New()
	done := startLoop(t, loop, observers.Subscribe())

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	outcome := waitOutcome(t, done)

	assert.Equal(t, Failed, outcome.State)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "renderer exploded")
	assert.Equal(t, Failed, loop.State())
	assert.NotContains(t, out.String(), "Stopping")
}

func TestLoop_ParentContextCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := NewLoop(&testutil.MockJob{JobInterval: time.Second}, WithClock(clock))
	_, observers := broadcast.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- loop.Run(ctx, observers.Subscribe())
	}()

	clock.BlockUntil(1)
	cancel()
	outcome := waitOutcome(t, done)
	assert.Equal(t, Stopped, outcome.State)
}

func TestLoop_IdleBeforeRun(t *testing.T) {
	loop := NewLoop(&testutil.MockJob{JobName: "idle", JobInterval: time.Second})
	assert.Equal(t, Idle, loop.State())
	assert.Equal(t, "idle", loop.Name())
}

func TestSpec_Name(t *testing.T) {
	assert.Equal(t, "server_time", Spec{Kind: KindServerTime}.Name())
	assert.Equal(t, "product_book:BTC-USD", Spec{Kind: KindProductBook, ProductID: "BTC-USD"}.Name())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "a: stopped", StoppedOutcome("a").String())
	assert.Equal(t, "b: failed (boom)", FailedOutcome("b", errors.New("boom")).String())
}
