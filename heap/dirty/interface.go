package dirty

import "context"

// DirtyTracker is the minimal interface for tracking modified byte ranges.
//
// It is intended for components that only report writes and never decide when
// they are persisted (the allocator).
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the region, length is the number of bytes.
	Add(off, length int)
}

// FlushableTracker extends DirtyTracker with flushing.
type FlushableTracker interface {
	DirtyTracker

	// Flush syncs every dirty page and clears the tracked ranges.
	Flush(ctx context.Context) error
}
