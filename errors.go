package mempool

import "errors"

var (
	// ErrNoMemory indicates that the policy could not supply a block and the
	// exhaustion handler returned without diverting.
	ErrNoMemory = errors.New("mempool: out of memory")

	// ErrInvalidSize indicates a zero, negative or overflowing size.
	ErrInvalidSize = errors.New("mempool: invalid size")

	// ErrInvalidAlignment indicates an alignment that is not a power of two.
	ErrInvalidAlignment = errors.New("mempool: alignment must be a power of two")

	// ErrShortBlock indicates a policy returned a block smaller than requested.
	ErrShortBlock = errors.New("mempool: block smaller than requested")

	// ErrBufferTooSmall indicates a caller buffer with no usable space left
	// after alignment.
	ErrBufferTooSmall = errors.New("mempool: buffer too small")

	// ErrBudgetExceeded indicates a LimitPolicy refused a block.
	ErrBudgetExceeded = errors.New("mempool: block budget exceeded")

	// ErrUnsupported indicates a policy that is not available on this platform.
	ErrUnsupported = errors.New("mempool: policy not supported on this platform")

	// ErrLeakedPool is reported by Factory.Close for every pool never released.
	ErrLeakedPool = errors.New("mempool: pool not released")
)
