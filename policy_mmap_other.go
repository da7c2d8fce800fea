//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package mempool

// MmapPolicy is unavailable on this platform; every Acquire fails.
type MmapPolicy struct{}

// NewMmapPolicy returns a policy whose Acquire always fails with ErrUnsupported.
func NewMmapPolicy() *MmapPolicy {
	return &MmapPolicy{}
}

func (*MmapPolicy) Acquire(int) ([]byte, error) { return nil, ErrUnsupported }

func (*MmapPolicy) Release([]byte, int) {}

func (*MmapPolicy) OnExhaustion(*Pool, int) error { return nil }
