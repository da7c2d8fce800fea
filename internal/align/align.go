// Package align holds the alignment arithmetic shared by the pool and the
// FIFO buffer.
package align

import "unsafe"

// Word is the platform word size and the default allocation alignment.
const Word = int(unsafe.Sizeof(uintptr(0)))

// IsPowerOfTwo reports whether a is a positive power of two.
func IsPowerOfTwo(a int) bool {
	return a > 0 && a&(a-1) == 0
}

// Up rounds n up to a multiple of a. a must be a power of two.
func Up(n, a int) int {
	mask := a - 1
	return (n + mask) &^ mask
}

// Pad returns the number of bytes needed to move addr to the next a boundary.
func Pad(addr uintptr, a int) int {
	mask := uintptr(a - 1)
	return int((-addr) & mask)
}

// IsAligned reports whether addr is a multiple of a.
func IsAligned(addr uintptr, a int) bool {
	return addr&uintptr(a-1) == 0
}

// Addr returns the address of the backing array of b, or 0 for a nil slice.
func Addr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
