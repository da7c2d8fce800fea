package mempool

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/mempool/internal/align"
)

// Factory owns a Policy and mediates the creation and release of pools.
// It tracks live pools and the bytes held from the policy. A Factory is safe
// for concurrent use as long as its policy is; the pools it creates are not.
type Factory struct {
	policy    Policy
	alignment int

	mu    sync.Mutex
	live  map[*Pool]struct{}
	cache *poolCache // nil unless caching is enabled

	usedBytes atomic.Int64
	peakBytes atomic.Int64
	blocks    atomic.Int64
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithDefaultAlignment sets the alignment of pools that do not pass
// WithAlignment themselves.
func WithDefaultAlignment(n int) FactoryOption {
	return func(f *Factory) { f.alignment = n }
}

// NewFactory returns a factory drawing blocks from policy.
// A nil policy means a fresh HeapPolicy.
func NewFactory(policy Policy, opts ...FactoryOption) *Factory {
	if policy == nil {
		policy = HeapPolicy{}
	}
	f := &Factory{
		policy:    policy,
		alignment: align.Word,
		live:      make(map[*Pool]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the factory's block policy.
func (f *Factory) Policy() Policy { return f.policy }

// NewPool creates a pool whose first block holds at least initialSize bytes
// and which grows by incrementSize bytes (0 for a fixed-size pool).
// An empty name is replaced by a generated one.
func (f *Factory) NewPool(name string, initialSize, incrementSize int, opts ...PoolOption) (*Pool, error) {
	if initialSize <= 0 || incrementSize < 0 {
		return nil, fmt.Errorf("%w: initial=%d increment=%d", ErrInvalidSize, initialSize, incrementSize)
	}
	if name == "" {
		name = newPoolName()
	}
	p := &Pool{
		name:      name,
		factory:   f,
		increment: incrementSize,
		alignment: f.alignment,
		class:     noClass,
	}
	for _, opt := range opts {
		opt(p)
	}
	if !align.IsPowerOfTwo(p.alignment) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlignment, p.alignment)
	}
	p.log = log.WithField("pool", p.name)

	size := initialSize
	if f.cache != nil {
		p.class = classFor(initialSize)
		if p.class < noClass {
			size = poolSizes[p.class]
			if f.reuse(p, initialSize) {
				f.track(p)
				p.log.WithField("capacity", p.capacity).Debug("pool reused")
				return p, nil
			}
		}
	}

	if _, err := p.grow(p.blockSize(size, p.alignment)); err != nil {
		return nil, err
	}
	f.track(p)
	p.log.WithField("capacity", p.capacity).Debug("pool created")
	return p, nil
}

func (f *Factory) track(p *Pool) {
	f.mu.Lock()
	f.live[p] = struct{}{}
	f.mu.Unlock()
}

// acquire obtains a block from the policy and validates its size.
func (f *Factory) acquire(size int) ([]byte, error) {
	buf, err := f.policy.Acquire(size)
	if err != nil {
		return nil, err
	}
	if len(buf) < size {
		f.policy.Release(buf, size)
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortBlock, len(buf), size)
	}
	f.blocks.Add(1)
	used := f.usedBytes.Add(int64(size))
	for {
		peak := f.peakBytes.Load()
		if used <= peak || f.peakBytes.CompareAndSwap(peak, used) {
			break
		}
	}
	return buf, nil
}

// release hands a block back to the policy.
func (f *Factory) release(buf []byte, size int) {
	f.policy.Release(buf, size)
	f.blocks.Add(-1)
	f.usedBytes.Add(-int64(size))
}

// isConfigError reports errors that must not be routed through the
// exhaustion handler.
func isConfigError(err error) bool {
	return errors.Is(err, ErrShortBlock) || errors.Is(err, ErrInvalidSize)
}

// releasePool recycles p when caching allows it and destroys it otherwise.
func (f *Factory) releasePool(p *Pool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.untrack(p)

	if f.cache != nil && f.recycle(p) {
		return
	}
	p.destroy()
}

// destroyPool releases every block of p regardless of caching.
func (f *Factory) destroyPool(p *Pool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.untrack(p)
	p.destroy()
}

func (f *Factory) untrack(p *Pool) {
	if _, ok := f.live[p]; !ok {
		panic("mempool: pool released twice or not owned by this factory")
	}
	delete(f.live, p)
}

// Stats returns a snapshot of the factory counters.
func (f *Factory) Stats() FactoryStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FactoryStats{
		LivePools: len(f.live),
		UsedBytes: f.usedBytes.Load(),
		PeakBytes: f.peakBytes.Load(),
		Blocks:    f.blocks.Load(),
	}
	if f.cache != nil {
		st.CachedPools = f.cache.count()
		st.CachedBytes = f.cache.capacity
	}
	return st
}

// Dump logs the factory status and, with detail, one line per live pool.
func (f *Factory) Dump(detail bool) {
	st := f.Stats()
	log.WithFields(logrus.Fields{
		"live":         st.LivePools,
		"cached":       st.CachedPools,
		"cached_bytes": st.CachedBytes,
		"used_bytes":   st.UsedBytes,
		"peak_bytes":   st.PeakBytes,
		"blocks":       st.Blocks,
	}).Info("factory status")
	if !detail {
		return
	}

	var totalUsed, totalCap int
	for _, ps := range f.PoolStats() {
		pct := 0
		if ps.Capacity > 0 {
			pct = ps.UsedBytes * 100 / ps.Capacity
		}
		log.Infof("  %16s: %8d of %8d (%d%%) used", ps.Name, ps.UsedBytes, ps.Capacity, pct)
		totalUsed += ps.UsedBytes
		totalCap += ps.Capacity
	}
	if totalCap > 0 {
		log.Infof("  Total %9d of %9d (%d%%) used", totalUsed, totalCap, totalUsed*100/totalCap)
	}
}

// PoolStats returns the statistics of every live pool, sorted by name.
// The pools must not be in use concurrently.
func (f *Factory) PoolStats() []Stats {
	f.mu.Lock()
	out := make([]Stats, 0, len(f.live))
	for p := range f.live {
		out = append(out, p.Stats())
	}
	f.mu.Unlock()
	slices.SortFunc(out, func(a, b Stats) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Close destroys cached pools and every pool still live. Each live pool is
// reported as an ErrLeakedPool in the returned error.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	leaked := make([]*Pool, 0, len(f.live))
	for p := range f.live {
		leaked = append(leaked, p)
	}
	slices.SortFunc(leaked, func(a, b *Pool) int { return strings.Compare(a.name, b.name) })

	var result *multierror.Error
	for _, p := range leaked {
		result = multierror.Append(result, fmt.Errorf("%w: %s (capacity %d)", ErrLeakedPool, p.name, p.capacity))
		p.log.Warn("pool leaked, destroying")
		p.destroy()
	}
	clear(f.live)

	if f.cache != nil {
		f.cache.drain(func(e cachedPool) {
			for _, b := range e.blocks {
				f.release(b.buf, b.size)
			}
		})
	}
	return result.ErrorOrNil()
}
