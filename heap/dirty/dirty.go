package dirty

import (
	"context"
	"fmt"
	"sort"

	"github.com/joshuapare/heapkit/heap"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// Range represents a dirty byte range (absolute region offsets).
type Range struct {
	Off int64 // Absolute offset in the region
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges and flushes them through a heap.Syncer.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	s        heap.Syncer
	ranges   []Range // Dirty ranges (coalesced at flush time)
	pageSize int64
	flushes  int
}

var _ FlushableTracker = (*Tracker)(nil)

// NewTracker creates a dirty tracker that flushes through s.
func NewTracker(s heap.Syncer) *Tracker {
	return &Tracker{
		s:        s,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a dirty range. Empty ranges are ignored.
//
// The range is page-aligned and coalesced with other ranges at flush time, so
// Add only appends to a slice.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Len returns the number of ranges recorded since the last flush.
func (t *Tracker) Len() int { return len(t.ranges) }

// Flushes returns how many non-empty flushes have completed.
func (t *Tracker) Flushes() int { return t.flushes }

// Ranges returns the page-aligned, merged view of the pending ranges.
func (t *Tracker) Ranges() []Range {
	return t.coalesce()
}

// Reset drops all pending ranges without flushing them.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Flush syncs every dirty page and clears the ranges.
//
// The context is checked before each range. If it is cancelled part way
// through, some ranges may have been synced while others have not; the
// pending set is kept so a later Flush retries all of them.
func (t *Tracker) Flush(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.s.Sync(int(r.Off), int(r.Len)); err != nil {
			return fmt.Errorf("dirty: sync [0x%X, 0x%X): %w", r.Off, r.Off+r.Len, err)
		}
	}

	t.ranges = t.ranges[:0]
	t.flushes++
	return nil
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
//
// Returns a new slice of non-overlapping, sorted ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		// Round down start to page boundary
		start := (r.Off / t.pageSize) * t.pageSize

		// Round up end to page boundary
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}

		aligned[i] = Range{
			Off: start,
			Len: end - start,
		}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for i := 1; i < len(aligned); i++ {
		next := aligned[i]

		if next.Off <= current.Off+current.Len {
			end := max(current.Off+current.Len, next.Off+next.Len)
			current.Len = end - current.Off
		} else {
			merged = append(merged, current)
			current = next
		}
	}

	merged = append(merged, current)
	return merged
}
