package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"natours-api/internal/domain"
)

// Builder accumulates query stages. It is a value: every stage returns a new
// Builder and leaves the receiver untouched. The first failing stage wins.
type Builder struct {
	values url.Values
	schema Schema
	spec   Spec
	err    error
}

// New starts a builder over request parameters. The input is copied.
func New(values url.Values, schema Schema) Builder {
	cp := make(url.Values, len(values))
	for k, v := range values {
		cp[k] = append([]string(nil), v...)
	}
	return Builder{
		values: cp,
		schema: schema,
		spec:   Spec{Page: DefaultPage, Limit: DefaultLimit},
	}
}

// All runs every stage in order.
func (b Builder) All() Builder {
	return b.Filter().Sort().Project().Paginate()
}

func (b Builder) Filter() Builder {
	if b.err != nil {
		return b
	}
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []Condition
	for _, key := range keys {
		if reserved[key] {
			continue
		}
		field, op, err := splitKey(key)
		if err != nil {
			return b.fail(err)
		}
		kind, ok := b.schema.Fields[field]
		if !ok {
			return b.fail(domain.Validation(fmt.Sprintf("Invalid filter field: %s", field)))
		}
		for _, raw := range b.values[key] {
			v, err := coerce(kind, raw)
			if err != nil {
				return b.fail(domain.Validation(fmt.Sprintf("Invalid %s: %s", field, raw)))
			}
			conds = append(conds, Condition{Field: field, Op: op, Value: v})
		}
	}
	b.spec.Conditions = conds
	return b
}

func splitKey(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", domain.Validation(fmt.Sprintf("Invalid filter: %s", key))
	}
	op := Op(key[open+1 : len(key)-1])
	if op == OpEq || !op.valid() {
		return "", "", domain.Validation(fmt.Sprintf("Invalid filter operator: %s", op))
	}
	return key[:open], op, nil
}

func coerce(kind Kind, raw string) (any, error) {
	switch kind {
	case Number:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case Bool:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case Time:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("not a time: %q", raw)
	case ObjectID:
		return primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	default:
		return raw, nil
	}
}

func (b Builder) Sort() Builder {
	if b.err != nil {
		return b
	}
	raw := b.values.Get("sort")
	if raw == "" {
		raw = b.schema.DefaultSort
	}
	var keys []SortKey
	for _, part := range splitList(raw) {
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if _, ok := b.schema.Fields[field]; !ok {
			return b.fail(domain.Validation(fmt.Sprintf("Invalid sort field: %s", field)))
		}
		keys = append(keys, SortKey{Field: field, Desc: desc})
	}
	b.spec.Sort = keys
	return b
}

func (b Builder) Project() Builder {
	if b.err != nil {
		return b
	}
	parts := splitList(b.values.Get("fields"))
	if len(parts) == 0 {
		b.spec.Projection = Projection{Fields: append([]string(nil), b.schema.Internal...), Exclude: true}
		return b
	}
	exclude := strings.HasPrefix(parts[0], "-")
	fields := make([]string, 0, len(parts)+len(b.schema.Internal))
	for _, part := range parts {
		if strings.HasPrefix(part, "-") != exclude {
			return b.fail(domain.Validation("Cannot mix included and excluded fields"))
		}
		field := strings.TrimPrefix(part, "-")
		if _, ok := b.schema.Fields[field]; !ok {
			return b.fail(domain.Validation(fmt.Sprintf("Invalid field: %s", field)))
		}
		fields = append(fields, field)
	}
	if exclude {
		fields = append(fields, b.schema.Internal...)
	}
	b.spec.Projection = Projection{Fields: fields, Exclude: exclude}
	return b
}

func (b Builder) Paginate() Builder {
	if b.err != nil {
		return b
	}
	b.spec.Page = positive(b.values.Get("page"), DefaultPage)
	b.spec.Limit = positive(b.values.Get("limit"), DefaultLimit)
	if b.spec.Limit > MaxLimit {
		b.spec.Limit = MaxLimit
	}
	// skip must stay representable; a page that far out cannot exist
	if b.spec.Page-1 > math.MaxInt32/b.spec.Limit {
		return b.fail(domain.ErrPageOutOfRange)
	}
	return b
}

func positive(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Spec returns the accumulated query or the first stage error.
func (b Builder) Spec() (Spec, error) {
	if b.err != nil {
		return Spec{}, b.err
	}
	return b.spec, nil
}

func (b Builder) fail(err error) Builder {
	b.err = err
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
