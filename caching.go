package mempool

import (
	"sort"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
)

// poolSizes are the size classes of the recycle cache. New pools are
// rounded up to the smallest class that fits their initial size.
var poolSizes = [...]int{
	256, 512, 1024, 2048, 4096, 8192, 12288, 16384,
	20480, 24576, 28672, 32768, 40960, 49152, 57344, 65536,
}

// noClass marks pools too large to be cached.
const noClass = len(poolSizes)

// classFor returns the smallest size class holding size bytes, or noClass.
func classFor(size int) int {
	return sort.SearchInts(poolSizes[:], size)
}

// cachedPool is the body of a released pool waiting to be reused.
type cachedPool struct {
	blocks   []*block
	capacity int
}

// poolCache keeps released pools per size class, oldest first.
type poolCache struct {
	maxCapacity int
	capacity    int
	free        [noClass]*queue.Queue
}

func newPoolCache(maxCapacity int) *poolCache {
	c := &poolCache{maxCapacity: maxCapacity}
	for i := range c.free {
		c.free[i] = queue.New()
	}
	return c
}

// WithCaching makes released pools reusable instead of destroyed, keeping at
// most maxCapacity bytes of idle pools.
func WithCaching(maxCapacity int) FactoryOption {
	return func(f *Factory) { f.cache = newPoolCache(maxCapacity) }
}

func (c *poolCache) take(class int) (cachedPool, bool) {
	if class >= noClass || c.free[class].Length() == 0 {
		return cachedPool{}, false
	}
	e := c.free[class].Remove().(cachedPool)
	c.capacity -= e.capacity
	if c.capacity < 0 {
		c.capacity = 0
	}
	return e, true
}

func (c *poolCache) put(class int, e cachedPool) {
	c.free[class].Add(e)
	c.capacity += e.capacity
}

func (c *poolCache) count() int {
	n := 0
	for _, q := range c.free {
		n += q.Length()
	}
	return n
}

func (c *poolCache) drain(fn func(cachedPool)) {
	for _, q := range c.free {
		for q.Length() > 0 {
			fn(q.Remove().(cachedPool))
		}
	}
	c.capacity = 0
}

// reuse hands p the body of a cached pool of its class, if one is available
// and still large enough once aligned for p.
func (f *Factory) reuse(p *Pool, initialSize int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.cache.take(p.class)
	if !ok {
		return false
	}
	p.blocks = e.blocks
	p.capacity = e.capacity
	p.rewind()
	if len(p.blocks[0].buf)-p.blocks[0].start < initialSize {
		p.destroy()
		return false
	}
	return true
}

// recycle parks p's body in the cache. It returns false when p must be
// destroyed instead. Called with f.mu held.
func (f *Factory) recycle(p *Pool) bool {
	c := f.cache
	if p.class >= noClass ||
		p.capacity > poolSizes[noClass-1] ||
		c.capacity+p.capacity > c.maxCapacity {
		return false
	}

	p.log.WithFields(logrus.Fields{
		"used":     p.UsedBytes(),
		"capacity": p.capacity,
	}).Debug("recycle")
	p.trim()
	c.put(p.class, cachedPool{blocks: p.blocks, capacity: p.capacity})
	p.detach()
	return true
}
