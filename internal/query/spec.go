// Package query turns list request parameters into a bounded, validated
// store query and renders it for the mongo, gorm and in-memory backends.
package query

import "time"

// Op is a comparison operator accepted in a filter.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpGte, OpGt, OpLte, OpLt:
		return true
	}
	return false
}

// Condition is one typed predicate on a field.
type Condition struct {
	Field string
	Op    Op
	Value any
}

type SortKey struct {
	Field string
	Desc  bool
}

// Projection is either an inclusion list or an exclusion list, never both.
type Projection struct {
	Fields  []string
	Exclude bool
}

func (p Projection) Empty() bool { return len(p.Fields) == 0 }

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Spec is a fully validated query ready for a store.
type Spec struct {
	Conditions []Condition
	Sort       []SortKey
	Projection Projection
	Page       int
	Limit      int
}

func (s Spec) Skip() int {
	if s.Page < 1 {
		return 0
	}
	return (s.Page - 1) * s.Limit
}

// Kind is the value type a field's filter values are coerced to.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	Time
	// ObjectID values are 24-char hex strings decoded to primitive.ObjectID.
	ObjectID
)

// Schema declares what a resource exposes to list queries.
type Schema struct {
	// Fields are the public field names and their kinds. Only these can be
	// filtered, sorted or projected.
	Fields map[string]Kind
	// DefaultSort applies when the request carries no sort, e.g. "-createdAt".
	DefaultSort string
	// Internal fields are always excluded from results.
	Internal []string
}

var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}
