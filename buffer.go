package mempool

import (
	"errors"
	"fmt"

	"github.com/pavanmanishd/mempool/internal/align"
)

var errStashConsumed = errors.New("mempool: buffer already handed out")

// bufferStash carries a caller buffer into a single pool creation.
// It hands the buffer out at most once.
type bufferStash struct {
	buf []byte
}

func (s *bufferStash) take(size int) ([]byte, error) {
	buf := s.buf
	s.buf = nil
	if buf == nil {
		return nil, errStashConsumed
	}
	if size > len(buf) {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, %d requested", ErrShortBlock, len(buf), size)
	}
	return buf, nil
}

// bufferPolicy serves its stash as the only block it will ever supply.
type bufferPolicy struct {
	stash *bufferStash
}

func (bp *bufferPolicy) Acquire(size int) ([]byte, error) {
	return bp.stash.take(size)
}

// Release is a no-op: the caller owns the buffer.
func (*bufferPolicy) Release([]byte, int) {}

func (*bufferPolicy) OnExhaustion(*Pool, int) error { return nil }

// NewPoolOnBuffer creates a fixed-size pool whose only block is buf. The
// start of buf is advanced to the word boundary; the pool never grows, so an
// allocation that does not fit in the remaining space fails with
// ErrNoMemory. Releasing the pool leaves buf untouched and owned by the
// caller.
func NewPoolOnBuffer(name string, buf []byte) (*Pool, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrBufferTooSmall)
	}
	pad := align.Pad(align.Addr(buf), align.Word)
	if pad >= len(buf) {
		return nil, fmt.Errorf("%w: %d bytes, %d lost to alignment", ErrBufferTooSmall, len(buf), pad)
	}
	buf = buf[pad:len(buf):len(buf)]

	f := NewFactory(&bufferPolicy{stash: &bufferStash{buf: buf}})
	return f.NewPool(name, len(buf), 0)
}
