// Package jobs turns loop specs into runnable poll jobs backed by the
// exchange client.
package jobs

import (
	"context"
	"fmt"
	"io"
	"time"

	"marketviewer/internal/coinbase"
	"marketviewer/internal/display"
	"marketviewer/internal/fetcher"
	"marketviewer/internal/poll"
)

// MarketData is the subset of the exchange client the jobs need.
type MarketData interface {
	GetServerTime(ctx context.Context) (coinbase.ServerTime, error)
	ListProducts(ctx context.Context) ([]coinbase.Product, error)
	GetProduct(ctx context.Context, productID string) (coinbase.Product, error)
	GetProductBook(ctx context.Context, productID string) (coinbase.ProductBook, error)
	GetCandles(ctx context.Context, productID string, start, end time.Time, granularity string) ([]coinbase.Candle, error)
	GetMarketTrades(ctx context.Context, productID string, limit int) (coinbase.MarketTradesResponse, error)
}

// Settings holds rendering and request knobs that are not part of a Spec.
type Settings struct {
	BookDepth   int
	TradesLimit int
}

// DefaultTradesLimit is the number of trades requested per tick.
const DefaultTradesLimit = 10

// Build creates the job described by spec.
func Build(md MarketData, spec poll.Spec, settings Settings) (poll.Job, error) {
	if spec.Interval <= 0 {
		return nil, fmt.Errorf("%s: interval must be positive, got %s", spec.Name(), spec.Interval)
	}
	if spec.Kind != poll.KindServerTime && spec.Kind != poll.KindProducts && spec.ProductID == "" {
		return nil, fmt.Errorf("%s: product id is required", spec.Kind)
	}

	name := spec.Name()
	productID := spec.ProductID

	switch spec.Kind {
	case poll.KindServerTime:
		return poll.NewJob[coinbase.ServerTime](name, spec.Interval,
			fetcher.SourceFunc[coinbase.ServerTime](md.GetServerTime),
			display.ServerTime()), nil

	case poll.KindProducts:
		return poll.NewJob[[]coinbase.Product](name, spec.Interval,
			fetcher.SourceFunc[[]coinbase.Product](md.ListProducts),
			display.RendererFunc[[]coinbase.Product](func(w io.Writer, products []coinbase.Product, _ *display.State) {
				display.ProductsSynthetic(w, products)
			})), nil

	case poll.KindProductDetails:
		return poll.NewJob[coinbase.Product](name, spec.Interval,
			fetcher.SourceFunc[coinbase.Product](func(ctx context.Context) (coinbase.Product, error) {
				return md.GetProduct(ctx, productID)
			}),
			display.ProductRow()), nil

	case poll.KindProductBook:
		return poll.NewJob[coinbase.ProductBook](name, spec.Interval,
			fetcher.SourceFunc[coinbase.ProductBook](func(ctx context.Context) (coinbase.ProductBook, error) {
				return md.GetProductBook(ctx, productID)
			}),
			display.ProductBook(settings.BookDepth)), nil

	case poll.KindCandles:
		window := spec.Candles
		if !window.End.After(window.Start) {
			return nil, fmt.Errorf("%s: candle window end %s is not after start %s",
				name, window.End.Format(time.RFC3339), window.Start.Format(time.RFC3339))
		}
		if window.Granularity == "" {
			return nil, fmt.Errorf("%s: candle granularity is required", name)
		}
		return poll.NewJob[[]coinbase.Candle](name, spec.Interval,
			fetcher.SourceFunc[[]coinbase.Candle](func(ctx context.Context) ([]coinbase.Candle, error) {
				return md.GetCandles(ctx, productID, window.Start, window.End, window.Granularity)
			}),
			display.Candles(productID)), nil

	case poll.KindMarketTrades:
		limit := settings.TradesLimit
		if limit <= 0 {
			limit = DefaultTradesLimit
		}
		return poll.NewJob[coinbase.MarketTradesResponse](name, spec.Interval,
			fetcher.SourceFunc[coinbase.MarketTradesResponse](func(ctx context.Context) (coinbase.MarketTradesResponse, error) {
				return md.GetMarketTrades(ctx, productID, limit)
			}),
			display.MarketTrades(productID)), nil
	}

	return nil, fmt.Errorf("unknown loop kind %q", spec.Kind)
}

// BuildAll creates one job per spec, stopping at the first invalid one.
func BuildAll(md MarketData, specs []poll.Spec, settings Settings) ([]poll.Job, error) {
	jobs := make([]poll.Job, 0, len(specs))
	for _, spec := range specs {
		job, err := Build(md, spec, settings)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
