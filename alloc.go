package mempool

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"
)

// allocFor reserves room for n values of T, aligned for T.
func allocFor[T any](p *Pool, n int) ([]byte, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		size = 1
	}
	if n <= 0 || n > math.MaxInt/size {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", ErrInvalidSize, n, size)
	}
	a := int(unsafe.Alignof(zero))
	if a < p.alignment {
		a = p.alignment
	}
	return p.alloc(size*n, a)
}

// Alloc returns a pointer to a zeroed T stored inside the pool.
// T must not contain Go pointers: pool memory is not scanned by the GC.
// The pointer is valid until the pool is reset or released.
func Alloc[T any](p *Pool) (*T, error) {
	b, err := allocFor[T](p, 1)
	if err != nil {
		return nil, err
	}
	clear(b)
	return (*T)(unsafe.Pointer(&b[0])), nil
}

// AllocUninitialized returns a *T located in the pool without zeroing memory.
// Memory reused after Reset holds whatever was written there before.
func AllocUninitialized[T any](p *Pool) (*T, error) {
	b, err := allocFor[T](p, 1)
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(&b[0])), nil
}

// AllocSlice allocates a slice of n elements of type T inside the pool.
// The elements are not initialized.
func AllocSlice[T any](p *Pool, n int) ([]T, error) {
	b, err := allocFor[T](p, n)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n), nil
}

// AllocSliceZeroed allocates a slice of n zeroed elements of type T.
func AllocSliceZeroed[T any](p *Pool, n int) ([]T, error) {
	b, err := allocFor[T](p, n)
	if err != nil {
		return nil, err
	}
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n), nil
}

// PtrAndKeepAlive returns t and keeps the pool reachable until this call.
func PtrAndKeepAlive[T any](p *Pool, t *T) *T {
	runtime.KeepAlive(p)
	return t
}

func unsafeString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
