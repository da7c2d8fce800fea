package mempool

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Policy supplies and reclaims the blocks a Pool carves allocations from.
//
// Acquire must return a block of at least size bytes or an error. Release is
// only ever called with a block returned by Acquire on the same policy, along
// with the size that was passed to that Acquire. OnExhaustion runs when
// Acquire fails: returning nil makes the triggering call fail with
// ErrNoMemory, returning an error diverts the call with that error instead.
type Policy interface {
	Acquire(size int) ([]byte, error)
	Release(block []byte, size int)
	OnExhaustion(p *Pool, size int) error
}

// ExhaustionFunc overrides a policy's OnExhaustion for a single pool.
type ExhaustionFunc func(p *Pool, size int) error

// HeapPolicy allocates blocks from the Go heap. It is the default policy and
// is safe for concurrent use.
type HeapPolicy struct{}

// Acquire returns a new zeroed block of exactly size bytes. Sizes the
// runtime refuses to allocate are reported as errors.
func (HeapPolicy) Acquire(size int) (buf []byte, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(runtime.Error)
			if !ok {
				panic(r)
			}
			buf, err = nil, fmt.Errorf("mempool: heap block of %d bytes: %w", size, rerr)
		}
	}()
	return make([]byte, size), nil
}

// Release drops the block; the garbage collector reclaims it.
func (HeapPolicy) Release([]byte, int) {}

// OnExhaustion reports the failure back to the caller.
func (HeapPolicy) OnExhaustion(*Pool, int) error { return nil }

// LimitPolicy caps the number of bytes a wrapped policy may have outstanding.
// It is safe for concurrent use when the wrapped policy is.
type LimitPolicy struct {
	inner Policy
	limit int64
	used  atomic.Int64
}

// NewLimitPolicy wraps inner with a budget of limit bytes.
// A nil inner policy means HeapPolicy.
func NewLimitPolicy(inner Policy, limit int) *LimitPolicy {
	if inner == nil {
		inner = HeapPolicy{}
	}
	return &LimitPolicy{inner: inner, limit: int64(limit)}
}

// Acquire reserves size bytes of budget before delegating.
func (lp *LimitPolicy) Acquire(size int) ([]byte, error) {
	for {
		cur := lp.used.Load()
		if cur+int64(size) > lp.limit {
			return nil, fmt.Errorf("%w: %d in use, %d requested, limit %d",
				ErrBudgetExceeded, cur, size, lp.limit)
		}
		if lp.used.CompareAndSwap(cur, cur+int64(size)) {
			break
		}
	}
	buf, err := lp.inner.Acquire(size)
	if err != nil {
		lp.used.Add(-int64(size))
		return nil, err
	}
	return buf, nil
}

// Release returns the block to the wrapped policy and frees its budget.
func (lp *LimitPolicy) Release(block []byte, size int) {
	lp.inner.Release(block, size)
	lp.used.Add(-int64(size))
}

// OnExhaustion delegates to the wrapped policy.
func (lp *LimitPolicy) OnExhaustion(p *Pool, size int) error {
	return lp.inner.OnExhaustion(p, size)
}

// Used returns the bytes currently held through this policy.
func (lp *LimitPolicy) Used() int { return int(lp.used.Load()) }

// Limit returns the configured budget.
func (lp *LimitPolicy) Limit() int { return int(lp.limit) }
