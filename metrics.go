package mempool

// UsedBytes returns the number of bytes handed out since the last reset,
// including alignment padding.
func (p *Pool) UsedBytes() int {
	sum := 0
	for _, b := range p.blocks {
		sum += b.used()
	}
	return sum
}

// NumBlocks returns the number of blocks the pool currently owns.
func (p *Pool) NumBlocks() int {
	return len(p.blocks)
}

// Capacity returns the total size in bytes of all owned blocks.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0).
// Returns 0.0 if the pool has no capacity.
func (p *Pool) Utilization() float64 {
	if p.capacity == 0 {
		return 0
	}
	return float64(p.UsedBytes()) / float64(p.capacity)
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Name:        p.name,
		UsedBytes:   p.UsedBytes(),
		Capacity:    p.capacity,
		NumBlocks:   len(p.blocks),
		Increment:   p.increment,
		Utilization: p.Utilization(),
	}
}

// Stats contains statistical information about a pool.
type Stats struct {
	Name        string
	UsedBytes   int     // Bytes currently allocated
	Capacity    int     // Total capacity in bytes
	NumBlocks   int     // Number of blocks
	Increment   int     // Growth step, 0 for fixed-size pools
	Utilization float64 // Ratio of used to total capacity (0.0-1.0)
}

// FactoryStats summarises a factory's pools and blocks.
type FactoryStats struct {
	LivePools   int   // Pools handed out and not yet released
	CachedPools int   // Pools parked in the recycle cache
	CachedBytes int   // Capacity parked in the recycle cache
	UsedBytes   int64 // Bytes of blocks currently held from the policy
	PeakBytes   int64 // High-water mark of UsedBytes
	Blocks      int64 // Blocks currently held from the policy
}

// Thread-safe metrics for SafePool

// UsedBytes thread-safely returns the number of bytes handed out.
func (s *SafePool) UsedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.UsedBytes()
}

// NumBlocks thread-safely returns the number of blocks.
func (s *SafePool) NumBlocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.NumBlocks()
}

// Capacity thread-safely returns the total capacity of all blocks.
func (s *SafePool) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Capacity()
}

// Utilization thread-safely returns the ratio of bytes in use to total capacity.
func (s *SafePool) Utilization() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Utilization()
}

// Stats thread-safely returns a snapshot of pool statistics.
func (s *SafePool) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Stats()
}
