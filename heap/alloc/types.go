package alloc

import (
	"log/slog"

	"github.com/joshuapare/heapkit/internal/format"
)

// Ptr is the heap offset of a payload. Payload offsets are always 8-byte
// aligned and never zero.
type Ptr uint32

// Nil is the pointer value that never addresses a payload.
const Nil Ptr = 0

// ChunkInfo describes one chunk as seen by Chunks and FreeChunks.
type ChunkInfo struct {
	Offset int  // Heap offset of the header
	Size   int  // Total size including header and footer
	Free   bool // Allocated bit clear
}

// Payload returns the pointer a caller holds for this chunk.
func (c ChunkInfo) Payload() Ptr {
	return Ptr(c.Offset + format.HeaderSize)
}

// Capacity returns the number of payload bytes the chunk can hold.
func (c ChunkInfo) Capacity() int {
	return format.PayloadCapacity(c.Size)
}

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	GrowCalls        int   // Number of region grows (including the initial one)
	GrowBytes        int64 // Total bytes added via Grow
	AllocCalls       int   // Total Alloc calls
	AllocFastPath    int   // Allocations served from the free list
	AllocSlowPath    int   // Allocations that required Grow
	FreeCalls        int   // Total Free calls
	ReallocCalls     int   // Total Realloc calls
	BytesAllocated   int64 // Total chunk bytes handed out (including overhead)
	BytesFreed       int64 // Total chunk bytes released
	SplitCount       int   // Number of chunk splits
	CoalesceForward  int   // Forward coalesce operations
	CoalesceBackward int   // Backward coalesce operations
	BadFrees         int   // Free calls rejected with ErrBadPtr
	DoubleFrees      int   // Free calls rejected with ErrDoubleFree
	Violations       int   // Invariant violations reported by Check
}

// Options configures an Allocator. A nil *Options selects the defaults.
type Options struct {
	// Logger receives diagnostics. Nil selects a text handler on stderr at
	// warn level, or debug level when HEAPKIT_LOG_ALLOC is set.
	Logger *slog.Logger

	// Check runs the consistency checker on entry and exit of every public
	// operation. HEAPKIT_CHECK forces it on.
	Check bool

	// Tracker is told about every byte range the allocator writes. It may be nil.
	Tracker DirtyTracker
}
