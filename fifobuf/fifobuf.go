// Package fifobuf implements a sequential allocator over one contiguous
// region. Allocations are appended at the end of a used window and released
// from its front, in the order they were made; once the front has been freed
// the window wraps around and reuses it.
//
// A Buffer is not safe for concurrent use. Callers sharing one must hold a
// lock around every call, MaxSize included.
package fifobuf

import (
	"errors"
	"fmt"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/mempool/internal/align"
)

var (
	// ErrEmptyRegion indicates New was given no memory.
	ErrEmptyRegion = errors.New("fifobuf: empty region")

	// ErrInvalidSize indicates a zero or negative allocation size.
	ErrInvalidSize = errors.New("fifobuf: invalid size")

	// ErrNoSpace indicates no contiguous free run is large enough.
	ErrNoSpace = errors.New("fifobuf: no space left")

	// ErrInvalidPointer indicates memory that was not allocated from the buffer.
	ErrInvalidPointer = errors.New("fifobuf: invalid pointer")

	// ErrOutOfOrder indicates a Free of anything but the oldest allocation.
	ErrOutOfOrder = errors.New("fifobuf: invalid free sequence")

	// ErrNotLast indicates an Unalloc of anything but the latest allocation.
	ErrNotLast = errors.New("fifobuf: invalid pointer to undo alloc")
)

var log = logrus.New()

// SetLogger replaces the package logger; nil is ignored.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}

// record describes one outstanding allocation.
type record struct {
	off     int
	size    int
	prevEnd int // end of the window before this allocation
}

// Buffer is a FIFO allocator over a fixed region.
//
// The used window runs from begin to end. Unwrapped it is [begin, end);
// wrapped it is [begin, tail) followed by [0, end), and the only free run is
// [end, begin). begin == end means empty unless full is set.
type Buffer struct {
	region []byte
	begin  int
	end    int
	full   bool
	used   int

	records *queue.Queue // committed allocations, oldest first
	last    *record      // latest allocation, still undoable
}

// New initialises a Buffer over region. The buffer does not copy region;
// the caller keeps it alive.
func New(region []byte) (*Buffer, error) {
	if len(region) == 0 {
		return nil, ErrEmptyRegion
	}
	b := &Buffer{region: region[:len(region):len(region)]}
	b.Reset()
	return b, nil
}

// Reset drops every outstanding allocation.
func (b *Buffer) Reset() {
	b.begin, b.end = 0, 0
	b.full = false
	b.used = 0
	b.records = queue.New()
	b.last = nil
}

// Cap returns the region size.
func (b *Buffer) Cap() int { return len(b.region) }

// Len returns the bytes held by outstanding allocations.
func (b *Buffer) Len() int { return b.used }

// IsFull reports whether no free byte is reachable.
func (b *Buffer) IsFull() bool { return b.full }

// IsEmpty reports whether no allocation is outstanding.
func (b *Buffer) IsEmpty() bool { return b.last == nil && b.records.Length() == 0 }

func (b *Buffer) wrapped() bool { return b.end < b.begin }

// MaxSize returns the size of the largest allocation that would succeed.
func (b *Buffer) MaxSize() int {
	switch {
	case b.full:
		return 0
	case b.wrapped():
		return b.begin - b.end
	default:
		return max(len(b.region)-b.end, b.begin)
	}
}

// Alloc returns n bytes from the buffer. It prefers the space after the
// window and wraps to the front of the region only when that is too small.
func (b *Buffer) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if b.full {
		b.trace(n, "full")
		return nil, fmt.Errorf("%w: buffer full", ErrNoSpace)
	}

	var off int
	switch {
	case b.wrapped() && b.begin-b.end >= n:
		off = b.end
	case !b.wrapped() && len(b.region)-b.end >= n:
		off = b.end
	case !b.wrapped() && b.begin >= n:
		off = 0
	default:
		b.trace(n, "no space left")
		return nil, fmt.Errorf("%w: %d bytes requested, largest run %d", ErrNoSpace, n, b.MaxSize())
	}

	b.commit()
	b.last = &record{off: off, size: n, prevEnd: b.end}
	b.end = off + n
	b.used += n
	if b.end == b.begin || (b.begin == 0 && b.end == len(b.region)) {
		b.full = true
	}
	b.trace(n, "alloc")
	return b.region[off : off+n : off+n], nil
}

// Unalloc undoes the latest Alloc. It is only valid before any Free or
// other Unalloc has happened since that Alloc.
func (b *Buffer) Unalloc(p []byte) error {
	off, ok := b.offsetOf(p)
	if !ok {
		return b.misuse(ErrInvalidPointer, "unalloc outside region", len(p))
	}
	if b.last == nil || b.last.off != off {
		return b.misuse(ErrNotLast, "unalloc of non-latest allocation", off)
	}

	b.end = b.last.prevEnd
	b.used -= b.last.size
	b.full = false
	b.last = nil
	if b.records.Length() == 0 {
		b.begin, b.end = 0, 0
	}
	b.trace(0, "unalloc")
	return nil
}

// Free releases the oldest outstanding allocation, which p must be.
func (b *Buffer) Free(p []byte) error {
	off, ok := b.offsetOf(p)
	if !ok {
		return b.misuse(ErrInvalidPointer, "free outside region", len(p))
	}
	front := b.front()
	if front == nil {
		return b.misuse(ErrInvalidPointer, "free with nothing allocated", off)
	}
	if front.off != off {
		return b.misuse(ErrOutOfOrder, "free of non-front allocation", off)
	}

	if b.records.Length() > 0 {
		b.records.Remove()
	} else {
		b.last = nil
	}
	// A free closes the undo window of the latest allocation.
	b.commit()

	b.used -= front.size
	b.full = false
	if b.records.Length() == 0 {
		b.begin, b.end = 0, 0
	} else {
		b.begin = b.records.Peek().(*record).off
	}
	b.trace(front.size, "free")
	return nil
}

// front returns the oldest outstanding allocation.
func (b *Buffer) front() *record {
	if b.records.Length() > 0 {
		return b.records.Peek().(*record)
	}
	return b.last
}

// commit moves the latest allocation into the FIFO.
func (b *Buffer) commit() {
	if b.last != nil {
		b.records.Add(b.last)
		b.last = nil
	}
}

// offsetOf maps p back to its offset in the region.
func (b *Buffer) offsetOf(p []byte) (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	base := align.Addr(b.region)
	addr := align.Addr(p)
	if addr < base || addr >= base+uintptr(len(b.region)) {
		return 0, false
	}
	return int(addr - base), true
}

func (b *Buffer) misuse(err error, msg string, arg int) error {
	log.WithFields(logrus.Fields{
		"arg":   arg,
		"begin": b.begin,
		"end":   b.end,
	}).Error(msg)
	return fmt.Errorf("%w: %s", err, msg)
}

func (b *Buffer) trace(n int, msg string) {
	if !log.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	log.WithFields(logrus.Fields{
		"size":  n,
		"begin": b.begin,
		"end":   b.end,
		"full":  b.full,
	}).Trace(msg)
}
