// Package alloc implements a general-purpose allocator over a growable heap.Region.
//
// # Overview
//
// Every chunk carries a boundary tag at both ends: a uint32 holding the chunk
// size with the low bit as the allocated flag. Free chunks additionally hold
// two links that thread them onto one circular, doubly linked free list
// anchored in the heap's prologue. Allocation is first-fit over that list,
// splitting a fit when the leftover can stand alone; release coalesces with
// both physical neighbours immediately.
//
// # Heap Layout
//
//	0x00  start marker  (zero-size allocated tag)
//	0x04  prologue      (16-byte allocated chunk, links = free-list anchor)
//	0x14  chunks...     (payloads are 8-byte aligned)
//	-0x04 end sentinel  (zero-size allocated tag)
//
// The sum of all chunk sizes plus the 24 bytes of fixed structure always
// equals the region size.
//
// # Usage Example
//
//	a, err := alloc.New(heap.NewMemory(0), nil)
//	if err != nil {
//	    return err
//	}
//
//	p, buf, err := a.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(buf, data)
//
//	p, buf, err = a.Realloc(p, 200) // first 100 bytes preserved
//
//	if err := a.Free(p); err != nil {
//	    // ErrBadPtr or ErrDoubleFree; the heap is unchanged
//	}
//
// # Growth
//
// When no free chunk fits, the allocator asks the region for exactly the
// chunk size it needs and builds the new chunk where the end sentinel used to
// be. A failed grow returns ErrNoSpace and leaves the heap untouched. The heap
// never shrinks.
//
// # Checking
//
// Check walks the heap physically and along the free list and logs every
// violation with a call-site tag. Options.Check (or HEAPKIT_CHECK) runs it on
// entry and exit of every operation.
//
// # Debug Logging
//
// Set HEAPKIT_LOG_ALLOC to log grow, split and coalesce events when no
// Options.Logger is supplied.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap: Region implementations
//   - github.com/joshuapare/heapkit/heap/dirty: Tracks modified pages for file regions
//   - github.com/joshuapare/heapkit/heap/verify: Invariant checks on raw heap bytes
package alloc
