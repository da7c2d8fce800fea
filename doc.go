// Package mempool implements growable memory pools for Go.
//
// # Overview
//
// A Pool satisfies many small, variously sized allocations from a few large
// blocks. Blocks come from a replaceable Policy (the Go heap, anonymous
// mappings, a budget, a caller buffer) and are only ever handed back as a
// whole: there is no per-allocation free. This suits:
//
//   - Request- or message-scoped scratch memory
//   - Parsers and protocol stacks that build many small structures at once
//   - Reducing garbage collection pressure
//
// # Basic Usage
//
//	f := mempool.NewFactory(nil) // heap policy
//	defer f.Close()
//
//	p, err := f.NewPool("request", 4096, 4096)
//	if err != nil {
//	    return err
//	}
//	defer p.Release()
//
//	buf, err := p.Alloc(128)
//	hdr, err := mempool.Alloc[Header](p)
//	ids, err := mempool.AllocSlice[uint32](p, 64)
//
//	p.Reset() // rewind without giving blocks back
//
// # Policies
//
// A Policy acquires and releases raw blocks and decides what happens when it
// runs dry. OnExhaustion either returns nil, and the allocation fails with
// ErrNoMemory, or returns an error that the allocation reports instead.
// WithExhaustionHandler overrides the hook for a single pool.
//
// # Pools on caller memory
//
// NewPoolOnBuffer builds a pool over a buffer the caller already owns. Such a
// pool has exactly one block and never grows.
//
// # Caching
//
// A factory created WithCaching keeps released pools, trimmed to their first
// block, in sixteen size classes and hands them to later NewPool calls of the
// same class.
//
// # Thread Safety
//
// Factories are safe for concurrent use when their policy is. Pools are not;
// wrap one in a SafePool to share it.
//
// # Important Notes
//
//   - Allocated memory is only valid until the pool is reset or released
//   - Types allocated with Alloc and AllocSlice must not hold Go pointers
//   - Use after Release or Destroy panics
//   - Allocations are aligned to the word size unless WithAlignment says otherwise
package mempool
