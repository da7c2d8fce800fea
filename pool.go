package mempool

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/mempool/internal/align"
)

// DefaultBlockSize is the initial and increment size used when a Config does
// not set one (4 KiB).
const DefaultBlockSize = 1 << 12

// block is one region obtained from the policy.
type block struct {
	buf   []byte // exactly as returned by Policy.Acquire
	size  int    // size passed to Policy.Acquire
	start int    // first aligned offset in buf
	cur   int    // allocation offset within buf
}

func newBlock(buf []byte, size, alignment int) *block {
	b := &block{buf: buf, size: size}
	b.rewind(alignment)
	return b
}

// rewind marks the whole block free again.
func (b *block) rewind(alignment int) {
	b.start = align.Pad(align.Addr(b.buf), alignment)
	if b.start > len(b.buf) {
		b.start = len(b.buf)
	}
	b.cur = b.start
}

// alloc carves n bytes aligned to a from the block, or returns nil.
// The cursor advances by n rounded up to a, clamped to the block end.
func (b *block) alloc(n, a int) []byte {
	off := b.cur + align.Pad(align.Addr(b.buf)+uintptr(b.cur), a)
	if off > len(b.buf) || n > len(b.buf)-off {
		return nil
	}
	end := len(b.buf)
	if rounded := align.Up(n, a); rounded <= end-off {
		end = off + rounded
	}
	b.cur = end
	return b.buf[off : off+n : off+n]
}

func (b *block) used() int { return b.cur - b.start }

// Pool is a growable bump allocator over blocks obtained from a Policy.
// Allocations are never freed individually: the pool is rewound with Reset
// or handed back with Release. A Pool is not safe for concurrent use; see
// SafePool.
type Pool struct {
	name        string
	factory     *Factory
	onExhausted ExhaustionFunc
	blocks      []*block // oldest first
	current     int      // index of the block last allocated from
	increment   int
	alignment   int
	capacity    int
	class       int // caching size class; noClass when not cacheable
	log         *logrus.Entry
}

// PoolOption configures a pool at creation time.
type PoolOption func(*Pool)

// WithExhaustionHandler overrides the policy's OnExhaustion for this pool.
func WithExhaustionHandler(fn ExhaustionFunc) PoolOption {
	return func(p *Pool) { p.onExhausted = fn }
}

// WithAlignment sets the alignment of every allocation. It must be a power
// of two; the default is the platform word size.
func WithAlignment(n int) PoolOption {
	return func(p *Pool) { p.alignment = n }
}

func newPoolName() string {
	return "pool-" + uuid.NewString()[:8]
}

// Alloc returns n bytes from the pool, aligned to the pool alignment.
// The slice has len and cap n and never crosses a block boundary.
func (p *Pool) Alloc(n int) ([]byte, error) {
	return p.alloc(n, p.alignment)
}

// AllocZeroed is Alloc followed by zeroing the returned bytes.
func (p *Pool) AllocZeroed(n int) ([]byte, error) {
	b, err := p.Alloc(n)
	if err != nil {
		return nil, err
	}
	clear(b)
	return b, nil
}

// CopyBytes duplicates src into pool memory.
func (p *Pool) CopyBytes(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	b, err := p.alloc(len(src), 1)
	if err != nil {
		return nil, err
	}
	copy(b, src)
	return b, nil
}

// CopyString duplicates s into pool memory.
func (p *Pool) CopyString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	b, err := p.alloc(len(s), 1)
	if err != nil {
		return "", err
	}
	copy(b, s)
	return unsafeString(b), nil
}

func (p *Pool) alloc(n, a int) ([]byte, error) {
	p.panicIfReleased()
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	// Fast path: the block we allocated from last
	if b := p.blocks[p.current].alloc(n, a); b != nil {
		return b, nil
	}
	return p.allocSlow(n, a)
}

// allocSlow tries every other block, oldest first, then grows the pool.
func (p *Pool) allocSlow(n, a int) ([]byte, error) {
	for i, blk := range p.blocks {
		if i == p.current {
			continue
		}
		if b := blk.alloc(n, a); b != nil {
			p.current = i
			return b, nil
		}
	}

	if p.increment == 0 {
		p.log.WithFields(logrus.Fields{
			"size":     n,
			"used":     p.UsedBytes(),
			"capacity": p.capacity,
		}).Debug("can't expand pool")
		return nil, p.exhausted(n, nil)
	}

	size := p.blockSize(n, a)
	if size < p.increment {
		size = p.increment
	}
	p.log.WithFields(logrus.Fields{
		"size":     n,
		"grow":     size,
		"used":     p.UsedBytes(),
		"capacity": p.capacity,
	}).Debug("resizing pool")

	blk, err := p.grow(size)
	if err != nil {
		return nil, err
	}
	b := blk.alloc(n, a)
	if b == nil {
		return nil, p.exhausted(n, nil)
	}
	p.current = len(p.blocks) - 1
	return b, nil
}

// blockSize returns the smallest block guaranteed to hold n bytes aligned
// to a, given that policies only promise word alignment.
func (p *Pool) blockSize(n, a int) int {
	if a > align.Word && n <= math.MaxInt-a {
		return n + a - 1
	}
	return n
}

// grow appends a new block of size bytes.
func (p *Pool) grow(size int) (*block, error) {
	buf, err := p.factory.acquire(size)
	if err != nil {
		p.log.WithError(err).WithField("size", size).Warn("block acquisition failed")
		if isConfigError(err) {
			return nil, err
		}
		return nil, p.exhausted(size, err)
	}
	blk := newBlock(buf, size, p.alignment)
	p.blocks = append(p.blocks, blk)
	p.capacity += len(buf)

	p.log.WithFields(logrus.Fields{
		"size":     size,
		"blocks":   len(p.blocks),
		"capacity": p.capacity,
	}).Debug("block created")
	return blk, nil
}

// exhausted runs the exhaustion handler and builds the error for the caller.
func (p *Pool) exhausted(size int, cause error) error {
	hook := p.onExhausted
	if hook == nil {
		hook = p.factory.policy.OnExhaustion
	}
	if err := hook(p, size); err != nil {
		return err
	}
	if cause != nil {
		return fmt.Errorf("%w: %s needs %d bytes: %w", ErrNoMemory, p.name, size, cause)
	}
	return fmt.Errorf("%w: %s needs %d bytes", ErrNoMemory, p.name, size)
}

// Reset rewinds every block without returning any of them to the policy.
// All memory previously handed out becomes invalid.
func (p *Pool) Reset() {
	p.panicIfReleased()
	p.log.WithFields(logrus.Fields{
		"used":     p.UsedBytes(),
		"capacity": p.capacity,
	}).Debug("reset")
	p.rewind()
}

func (p *Pool) rewind() {
	for _, b := range p.blocks {
		b.rewind(p.alignment)
	}
	p.current = 0
}

// Trim returns every block except the first to the policy and resets the
// pool, bringing it back to its freshly created shape.
func (p *Pool) Trim() {
	p.panicIfReleased()
	p.trim()
}

func (p *Pool) trim() {
	for _, b := range p.blocks[1:] {
		p.factory.release(b.buf, b.size)
		p.capacity -= len(b.buf)
	}
	clear(p.blocks[1:])
	p.blocks = p.blocks[:1]
	p.rewind()
}

// Release hands the pool back to its factory, which either recycles or
// destroys it. The pool must not be used afterwards.
func (p *Pool) Release() {
	p.panicIfReleased()
	p.factory.releasePool(p)
}

// SecureRelease zeroes every block before releasing the pool.
func (p *Pool) SecureRelease() {
	p.panicIfReleased()
	for _, b := range p.blocks {
		clear(b.buf)
	}
	p.factory.releasePool(p)
}

// Destroy returns every block to the policy, bypassing any factory cache.
// The pool must not be used afterwards.
func (p *Pool) Destroy() {
	p.panicIfReleased()
	p.factory.destroyPool(p)
}

// destroy releases each block exactly once with the size it was acquired with.
func (p *Pool) destroy() {
	p.log.WithFields(logrus.Fields{
		"used":     p.UsedBytes(),
		"capacity": p.capacity,
		"blocks":   len(p.blocks),
	}).Debug("destroy")
	for _, b := range p.blocks {
		p.factory.release(b.buf, b.size)
	}
	p.detach()
}

// detach drops the pool's blocks without releasing them.
func (p *Pool) detach() {
	p.blocks = nil
	p.capacity = 0
	p.current = 0
}

// BlockIndex reports which block b lies in, if it lies entirely within one.
func (p *Pool) BlockIndex(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	start := align.Addr(b)
	end := start + uintptr(len(b))
	for i, blk := range p.blocks {
		base := align.Addr(blk.buf)
		if start >= base && end <= base+uintptr(len(blk.buf)) {
			return i, true
		}
	}
	return 0, false
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Increment returns the size by which the pool grows; 0 means fixed size.
func (p *Pool) Increment() int { return p.increment }

// Alignment returns the allocation alignment.
func (p *Pool) Alignment() int { return p.alignment }

// panicIfReleased panics if the pool has been released or destroyed.
func (p *Pool) panicIfReleased() {
	if p.blocks == nil {
		panic("mempool: use after Release()")
	}
}
