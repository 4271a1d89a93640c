package repo

import (
	"time"
)

// Operation names a store read or write a hook can attach to.
type Operation string

const (
	OpFind    Operation = "find"
	OpFindOne Operation = "findOne"
	OpCount   Operation = "count"
	OpUpdate  Operation = "update"
)

// ReadOps are the operations that return documents or counts.
var ReadOps = []Operation{OpFind, OpFindOne, OpCount}

// Interceptor runs around one store call. Pre rewrites the backend's filter
// (bson.D, *gorm.DB or []query.Condition); Post observes the outcome.
type Interceptor[F any] struct {
	Pre  func(op Operation, filter F) F
	Post func(op Operation, elapsed time.Duration, err error)
}

// Hooks is an explicit per-operation interceptor registry, fixed at
// construction.
type Hooks[F any] struct {
	byOp map[Operation][]Interceptor[F]
}

func NewHooks[F any]() *Hooks[F] {
	return &Hooks[F]{byOp: map[Operation][]Interceptor[F]{}}
}

// On registers ic for every op in ops.
func (h *Hooks[F]) On(ops []Operation, ic Interceptor[F]) *Hooks[F] {
	for _, op := range ops {
		h.byOp[op] = append(h.byOp[op], ic)
	}
	return h
}

// Before applies every Pre of op in registration order.
func (h *Hooks[F]) Before(op Operation, filter F) F {
	if h == nil {
		return filter
	}
	for _, ic := range h.byOp[op] {
		if ic.Pre != nil {
			filter = ic.Pre(op, filter)
		}
	}
	return filter
}

// After reports the call outcome to every Post of op.
func (h *Hooks[F]) After(op Operation, start time.Time, err error) {
	if h == nil {
		return
	}
	elapsed := time.Since(start)
	for _, ic := range h.byOp[op] {
		if ic.Post != nil {
			ic.Post(op, elapsed, err)
		}
	}
}
