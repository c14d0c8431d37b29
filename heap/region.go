package heap

import "errors"

// DefaultMaxSize is the default capacity of a region (20 MiB).
const DefaultMaxSize = 20 << 20

var (
	// ErrExhausted indicates the region cannot grow past its capacity.
	ErrExhausted = errors.New("heap: region exhausted")

	// ErrBadGrow indicates a negative growth request.
	ErrBadGrow = errors.New("heap: negative grow")

	// ErrClosed indicates the region was already closed.
	ErrClosed = errors.New("heap: region closed")

	// ErrUnsupported indicates the region type is not available on this platform.
	ErrUnsupported = errors.New("heap: unsupported on this platform")
)

// Region is the heap growth primitive the allocator is built on.
//
// Implementations must extend contiguously and must never move or alter bytes
// that were already handed out: the slice returned by Bytes after a Grow
// shares its prefix (and its base address) with every earlier one.
type Region interface {
	// Grow extends the region by exactly n bytes and returns the offset of
	// the first new byte (the size before the call). On failure the region
	// is unchanged.
	Grow(n int) (base int, err error)

	// Size returns the current size of the region in bytes.
	Size() int

	// Bytes returns the current contents of the region.
	Bytes() []byte
}

// Syncer is implemented by regions that are backed by persistent storage.
type Syncer interface {
	// Sync flushes the byte range [off, off+length) to storage.
	Sync(off, length int) error
}
