package mempool

import (
	"runtime"
	"sync"
)

// SafePool is a mutex-protected wrapper around Pool for concurrent access.
// Every operation takes the lock, including the read-only metrics.
type SafePool struct {
	mu sync.Mutex
	p  *Pool
}

// NewSafePool wraps p. The caller must stop using p directly.
func NewSafePool(p *Pool) *SafePool {
	return &SafePool{p: p}
}

// Alloc thread-safely allocates n bytes.
func (s *SafePool) Alloc(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Alloc(n)
}

// AllocZeroed thread-safely allocates n zeroed bytes.
func (s *SafePool) AllocZeroed(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.AllocZeroed(n)
}

// CopyBytes thread-safely duplicates src into pool memory.
func (s *SafePool) CopyBytes(src []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.CopyBytes(src)
}

// CopyString thread-safely duplicates s into pool memory.
func (s *SafePool) CopyString(str string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.CopyString(str)
}

// Reset thread-safely rewinds the pool.
func (s *SafePool) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Reset()
}

// Trim thread-safely drops every block but the first and rewinds the pool.
func (s *SafePool) Trim() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Trim()
}

// Release thread-safely hands the pool back to its factory.
func (s *SafePool) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Release()
}

// SecureRelease thread-safely zeroes every block and releases the pool.
func (s *SafePool) SecureRelease() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.SecureRelease()
}

// Destroy thread-safely returns every block to the policy.
func (s *SafePool) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Destroy()
}

// BlockIndex thread-safely reports which block b lies in.
func (s *SafePool) BlockIndex(b []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.BlockIndex(b)
}

// Generic allocation functions for SafePool

// SafeAlloc thread-safely returns a pointer to a zeroed T inside the pool.
func SafeAlloc[T any](s *SafePool) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Alloc[T](s.p)
}

// SafeAllocUninitialized thread-safely returns a *T without zeroing memory.
func SafeAllocUninitialized[T any](s *SafePool) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocUninitialized[T](s.p)
}

// SafeAllocSlice thread-safely allocates a slice of n elements of type T.
func SafeAllocSlice[T any](s *SafePool, n int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocSlice[T](s.p, n)
}

// SafeAllocSliceZeroed thread-safely allocates a slice of n zeroed elements.
func SafeAllocSliceZeroed[T any](s *SafePool, n int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocSliceZeroed[T](s.p, n)
}

// SafePtrAndKeepAlive thread-safely returns t and keeps the pool reachable.
func SafePtrAndKeepAlive[T any](s *SafePool, t *T) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	runtime.KeepAlive(s.p)
	return t
}
