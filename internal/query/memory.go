package query

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryExecutor runs specs against a slice. Fields exposes an item's
// queryable values keyed by public field name.
type MemoryExecutor[T any] struct {
	Items  []T
	Fields func(T) map[string]any
}

func (m *MemoryExecutor[T]) Count(ctx context.Context, conds []Condition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(m.filter(conds))), nil
}

func (m *MemoryExecutor[T]) Find(ctx context.Context, spec Spec) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := m.filter(spec.Conditions)
	if len(spec.Sort) > 0 {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := m.Fields(items[i]), m.Fields(items[j])
			for _, k := range spec.Sort {
				c, ok := compare(a[k.Field], b[k.Field])
				if !ok || c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if spec.Limit > 0 {
		skip := spec.Skip()
		if skip >= len(items) {
			return []T{}, nil
		}
		end := skip + spec.Limit
		if end > len(items) {
			end = len(items)
		}
		items = items[skip:end]
	}
	return items, nil
}

func (m *MemoryExecutor[T]) filter(conds []Condition) []T {
	out := make([]T, 0, len(m.Items))
	for _, item := range m.Items {
		if Matches(m.Fields(item), conds) {
			out = append(out, item)
		}
	}
	return out
}

// Matches reports whether a field map satisfies every condition.
func Matches(fields map[string]any, conds []Condition) bool {
	for _, c := range conds {
		got, ok := fields[c.Field]
		if !ok {
			return false
		}
		cmp, ok := compare(got, c.Value)
		if !ok {
			return false
		}
		var pass bool
		switch c.Op {
		case OpEq:
			pass = cmp == 0
		case OpGte:
			pass = cmp >= 0
		case OpGt:
			pass = cmp > 0
		case OpLte:
			pass = cmp <= 0
		case OpLt:
			pass = cmp < 0
		}
		if !pass {
			return false
		}
	}
	return true
}

func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case primitive.ObjectID:
		bv, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av[:], bv[:]), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
