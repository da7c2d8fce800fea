package mempool

import (
	"sync"
	"testing"

	"github.com/pavanmanishd/mempool/internal/align"
)

// countingPolicy is a heap policy that records every block it hands out and
// checks that each one comes back exactly once with its original size.
type countingPolicy struct {
	mu       sync.Mutex
	t        testing.TB
	acquired int
	released int
	live     map[uintptr]int
	short    int // when > 0, blocks are this many bytes short
}

func newCountingPolicy(t testing.TB) *countingPolicy {
	return &countingPolicy{t: t, live: make(map[uintptr]int)}
}

func (cp *countingPolicy) Acquire(size int) ([]byte, error) {
	buf := make([]byte, size)
	if cp.short > 0 && cp.short < size {
		buf = buf[:size-cp.short]
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.acquired++
	cp.live[align.Addr(buf)] = size
	return buf, nil
}

func (cp *countingPolicy) Release(block []byte, size int) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	addr := align.Addr(block)
	want, ok := cp.live[addr]
	if !ok {
		cp.t.Errorf("Release of unknown or already released block %#x", addr)
		return
	}
	if want != size {
		cp.t.Errorf("Release size = %d, want %d", size, want)
	}
	delete(cp.live, addr)
	cp.released++
}

func (*countingPolicy) OnExhaustion(*Pool, int) error { return nil }

func (cp *countingPolicy) outstanding() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.live)
}

// newTestPool creates a heap-backed pool and registers its cleanup.
func newTestPool(t testing.TB, initial, increment int, opts ...PoolOption) *Pool {
	t.Helper()
	p, err := NewFactory(nil).NewPool(t.Name(), initial, increment, opts...)
	if err != nil {
		t.Fatalf("NewPool(%d, %d) error = %v", initial, increment, err)
	}
	t.Cleanup(func() {
		if p.blocks != nil {
			p.Release()
		}
	})
	return p
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on %s", what)
		}
	}()
	fn()
}
