package fetcher

import "context"

// Source is the core interface that all data sources must implement.
// A Source performs exactly one network round trip per Fetch call and
// returns a typed record or a *FetchError.
type Source[T any] interface {
	Fetch(ctx context.Context) (T, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc[T any] func(ctx context.Context) (T, error)

// Fetch implements the Source interface
func (f SourceFunc[T]) Fetch(ctx context.Context) (T, error) {
	return f(ctx)
}
