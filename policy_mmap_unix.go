//go:build linux || darwin || freebsd || netbsd || openbsd

package mempool

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// MmapPolicy backs every block with its own anonymous private mapping, so
// released blocks go straight back to the kernel instead of the Go heap.
type MmapPolicy struct{}

// NewMmapPolicy returns a policy that maps blocks with mmap(2).
func NewMmapPolicy() *MmapPolicy {
	return &MmapPolicy{}
}

// Acquire maps size bytes of zeroed, page-aligned memory.
func (*MmapPolicy) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mempool: mmap %d bytes: %w", size, err)
	}
	return data, nil
}

// Release unmaps the block. block must be the exact slice Acquire returned.
func (*MmapPolicy) Release(block []byte, size int) {
	if err := unix.Munmap(block); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"size": size,
		}).Error("munmap failed")
	}
}

// OnExhaustion reports the failure back to the caller.
func (*MmapPolicy) OnExhaustion(*Pool, int) error { return nil }
