// Package dirty provides page-level dirty tracking for file-backed heaps.
//
// # Overview
//
// The allocator writes boundary tags, links and sentinels straight into the
// mapped region. When the region is a heap.File those writes only reach disk
// once the pages holding them are synced. A Tracker records every modified
// byte range and flushes the covering pages in one pass.
//
// # Usage
//
//	r, _ := heap.OpenFile(path, 64<<20)
//	dt := dirty.NewTracker(r)
//	a, _ := alloc.New(r, &alloc.Options{Tracker: dt})
//
//	// ... Alloc / Free / Realloc ...
//
//	if err := dt.Flush(ctx); err != nil {
//	    return err
//	}
//
// # Page-Level Granularity
//
// Ranges are rounded out to 4KB page boundaries when flushed, and overlapping
// or touching pages are merged:
//
//	Add(100, 8), Add(4000, 200), Add(9000, 4) → [0x0-0x2000, 0x2000-0x3000]
//	                                          → merged: [0x0-0x3000]
//
// # Thread Safety
//
// Trackers are not thread-safe. The allocator that owns the region is the
// only caller of Add.
package dirty
