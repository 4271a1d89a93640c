package query

import (
	"context"

	"natours-api/internal/domain"
)

// Executor is the store side of a list query.
type Executor[T any] interface {
	Count(ctx context.Context, conds []Condition) (int64, error)
	Find(ctx context.Context, spec Spec) ([]T, error)
}

type Result[T any] struct {
	Items []T
	Total int64
	Spec  Spec
}

// Execute builds the Spec, counts the filtered set and fetches one page.
// A page that starts at or past the end of a non-first page fails with
// domain.ErrPageOutOfRange.
func Execute[T any](ctx context.Context, b Builder, exec Executor[T]) (Result[T], error) {
	spec, err := b.All().Spec()
	if err != nil {
		return Result[T]{}, err
	}
	total, err := exec.Count(ctx, spec.Conditions)
	if err != nil {
		return Result[T]{}, err
	}
	if skip := int64(spec.Skip()); skip > 0 && skip >= total {
		return Result[T]{}, domain.ErrPageOutOfRange
	}
	items, err := exec.Find(ctx, spec)
	if err != nil {
		return Result[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Total: total, Spec: spec}, nil
}
