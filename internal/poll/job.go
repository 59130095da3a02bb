package poll

import (
	"context"
	"fmt"
	"io"
	"time"

	"marketviewer/internal/display"
	"marketviewer/internal/fetcher"
)

// Kind identifies which exchange endpoint a loop polls.
type Kind string

const (
	KindProducts       Kind = "products"
	KindServerTime     Kind = "server_time"
	KindProductBook    Kind = "product_book"
	KindCandles        Kind = "candles"
	KindMarketTrades   Kind = "market_trades"
	KindProductDetails Kind = "product"
)

// CandleWindow holds the fixed request window for candle loops.
type CandleWindow struct {
	Start       time.Time
	End         time.Time
	Granularity string
}

// Spec describes one polling loop. It is not modified once the loop starts.
type Spec struct {
	Kind      Kind
	ProductID string
	Interval  time.Duration
	Candles   CandleWindow
}

// Name returns the loop identity used in logs and results.
func (s Spec) Name() string {
	if s.ProductID == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.ProductID)
}

// Job is one fetch-and-render unit driven by a Loop.
type Job interface {
	// Name identifies the job in logs and in the coordinator's result.
	Name() string

	// Interval is the pause between two ticks.
	Interval() time.Duration

	// Tick performs one fetch and, on success, renders the record to w.
	// The returned error is a per-tick error; it never ends the loop.
	Tick(ctx context.Context, w io.Writer) error
}

type job[T any] struct {
	name     string
	interval time.Duration
	source   fetcher.Source[T]
	renderer display.Renderer[T]
	state    display.State
}

// NewJob pairs a Source with a Renderer. Each job owns its own display state,
// so two jobs rendering the same record type never share a header flag.
func NewJob[T any](name string, interval time.Duration, source fetcher.Source[T], renderer display.Renderer[T]) Job {
	return &job[T]{
		name:     name,
		interval: interval,
		source:   source,
		renderer: renderer,
	}
}

func (j *job[T]) Name() string            { return j.name }
func (j *job[T]) Interval() time.Duration { return j.interval }

func (j *job[T]) Tick(ctx context.Context, w io.Writer) error {
	v, err := j.source.Fetch(ctx)
	if err != nil {
		return err
	}
	j.renderer.Render(w, v, &j.state)
	return nil
}
