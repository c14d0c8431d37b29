// Package heap provides the growth primitive heapkit allocators are built on.
//
// # Overview
//
// A Region is one contiguous byte range that only grows at its high end, the
// equivalent of a process break moved by sbrk. The allocator in heap/alloc
// asks a Region for more bytes whenever no free chunk can serve a request and
// never gives bytes back.
//
// # Implementations
//
// Memory: an in-process byte slice with its capacity reserved up front
//
//	r := heap.NewMemory(20 << 20)
//
// File: a memory-mapped file (linux and darwin). The full capacity is mapped
// at open time and the file is extended underneath the mapping, so the base
// address is stable and slices handed out earlier stay valid.
//
//	r, err := heap.OpenFile("/tmp/heap.bin", 64<<20)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
// File also implements Syncer, which heap/dirty uses to flush modified pages.
//
// # Thread Safety
//
// Regions are not thread-safe. The allocator that owns a region is its only
// mutator.
package heap
