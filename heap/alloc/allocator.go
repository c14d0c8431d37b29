package alloc

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
)

// Runtime debug flag for allocation logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// Runtime flag that turns on the consistency checker for every allocator.
var forceCheck = os.Getenv("HEAPKIT_CHECK") != ""

// maxRequest is the largest payload a single chunk can carry.
const maxRequest = format.MaxChunkSize - format.ChunkOverhead

// Allocator is a boundary-tag allocator with an explicit free list, first-fit
// placement, splitting and eager coalescing on both sides.
//
// All metadata lives inside the region: the allocator itself only holds the
// region handle, options and counters.
type Allocator struct {
	r     heap.Region
	dt    DirtyTracker
	log   *slog.Logger
	debug bool // log split/grow/coalesce records
	check bool // run Check on entry and exit of every operation

	free  freeList
	stats Stats

	// Test hook: called before Grow() with the byte count (nil in production)
	onGrow func(n int)
}

// New lays out an empty heap in r: start marker, prologue, one free chunk of
// the minimum size and the end sentinel.
//
// Parameters:
//   - r: an empty region; New fails with ErrNotEmpty otherwise
//   - opts: logging, checking and dirty tracking (use nil for defaults)
func New(r heap.Region, opts *Options) (*Allocator, error) {
	if opts == nil {
		opts = &Options{}
	}
	if size := r.Size(); size != 0 {
		return nil, fmt.Errorf("%w: region holds %d bytes", ErrNotEmpty, size)
	}

	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	a := &Allocator{
		r:     r,
		dt:    opts.Tracker,
		log:   logger,
		debug: logger.Enabled(context.Background(), slog.LevelDebug),
		check: opts.Check || forceCheck,
		free:  freeList{r: r, dt: opts.Tracker},
	}

	base, err := r.Grow(format.InitialHeapSize)
	if err != nil {
		return nil, fmt.Errorf("%w: initial %d bytes: %w", ErrGrowFail, format.InitialHeapSize, err)
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += format.InitialHeapSize

	b := r.Bytes()
	format.PutMarker(b, base+format.StartMarkerOffset)
	anchor.Tag(b, format.Encode(format.PrologueSize, false))
	a.free.reset()

	first := format.Chunk(format.FirstChunkOffset)
	first.Tag(b, format.Encode(format.MinChunkSize, true))
	format.PutMarker(b, format.SentinelOffset(len(b)))
	a.free.insert(first)
	a.touch(0, len(b))

	if a.debug {
		a.log.Debug("heap initialized", "size", len(b), "first", first.Offset())
	}
	if a.check {
		a.Check("New exit")
	}
	return a, nil
}

// defaultLogger writes text records to stderr at warn level, or debug level
// when HEAPKIT_LOG_ALLOC is set.
func defaultLogger() *slog.Logger {
	level := slog.LevelWarn
	if logAlloc {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", "alloc")
}

// Alloc returns a pointer to a payload of at least n bytes and a view of
// exactly n bytes over it. The view's capacity is the chunk's full payload.
//
// A zero request is served with a minimum-size chunk.
func (a *Allocator) Alloc(n int) (Ptr, []byte, error) {
	a.stats.AllocCalls++
	if n < 0 || n > maxRequest {
		return Nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	if a.check {
		a.Check("Alloc entry")
		defer a.Check("Alloc exit")
	}

	need := format.ChunkSize(n)
	c, ok := a.firstFit(need)
	if ok {
		a.stats.AllocFastPath++
		a.place(c, need)
	} else {
		var err error
		if c, err = a.grow(need); err != nil {
			return Nil, nil, err
		}
		a.stats.AllocSlowPath++
	}

	b := a.r.Bytes()
	size := c.Header(b).Size()
	a.stats.BytesAllocated += int64(size)

	p := c.Payload()
	end := c.Offset() + size - format.FooterSize
	return Ptr(p), b[p : int(p)+n : end], nil
}

// firstFit returns the first free chunk, in list order, of at least need bytes.
func (a *Allocator) firstFit(need int) (format.Chunk, bool) {
	b := a.r.Bytes()
	for c := range a.free.all() {
		if c.Header(b).Size() >= need {
			return c, true
		}
	}
	return 0, false
}

// place marks the free chunk c allocated, splitting off the tail when what
// is left over can stand alone as a chunk.
func (a *Allocator) place(c format.Chunk, need int) {
	b := a.r.Bytes()
	size := c.Header(b).Size()
	rem := size - need

	if rem >= format.MinChunkSize {
		a.stats.SplitCount++
		if a.debug {
			a.log.Debug("split", "chunk", c.Offset(), "size", size, "need", need, "remainder", rem)
		}

		tail := format.Chunk(c.Offset() + need)
		tail.Tag(b, format.Encode(rem, true))
		a.free.replace(c, tail)
		c.Tag(b, format.Encode(need, false))
		a.touchTags(c)
		a.touchTags(tail)
		return
	}

	// Use entire chunk (absorb remainder)
	a.free.remove(c)
	c.Tag(b, format.Encode(size, false))
	a.touchTags(c)
}

// grow extends the region by exactly need bytes and turns the old end
// sentinel position into a new allocated chunk. On failure nothing changes.
// The region never grows past format.MaxHeapSize, whatever its own capacity.
func (a *Allocator) grow(need int) (format.Chunk, error) {
	if size := a.r.Size(); need > format.MaxHeapSize-size {
		if a.debug {
			a.log.Debug("grow past offset range", "need", need, "size", size)
		}
		return 0, fmt.Errorf("%w: need %d bytes at size %d, heap limit is %d",
			ErrNoSpace, need, size, format.MaxHeapSize)
	}
	if a.onGrow != nil {
		a.onGrow(need)
	}

	base, err := a.r.Grow(need)
	if err != nil {
		if a.debug {
			a.log.Debug("grow failed", "need", need, "size", a.r.Size(), "err", err)
		}
		return 0, fmt.Errorf("%w: need %d bytes: %w", ErrNoSpace, need, err)
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(need)

	b := a.r.Bytes()
	c := format.Chunk(base - format.SentinelSize)
	c.Tag(b, format.Encode(need, false))
	format.PutMarker(b, format.SentinelOffset(len(b)))
	a.touch(c.Offset(), need+format.SentinelSize)

	if a.debug {
		a.log.Debug("grow", "need", need, "chunk", c.Offset(), "size", len(b))
	}
	return c, nil
}

// Free releases the chunk owning p and merges it with free neighbours.
//
// Misuse never changes the heap: a pointer that does not address a chunk
// payload returns ErrBadPtr and a chunk that is already free returns
// ErrDoubleFree. Both are logged at warn level.
func (a *Allocator) Free(p Ptr) error {
	a.stats.FreeCalls++
	if a.check {
		a.Check("Free entry")
		defer a.Check("Free exit")
	}

	c, err := a.chunkOf(p)
	if err != nil {
		a.stats.BadFrees++
		a.log.Warn("free of invalid pointer", "ptr", p, "err", err)
		return err
	}

	b := a.r.Bytes()
	h := c.Header(b)
	if h.IsFree() {
		a.stats.DoubleFrees++
		a.log.Warn("trying to free a chunk that is not allocated", "ptr", p, "chunk", c.Offset(), "size", h.Size())
		return fmt.Errorf("%w: ptr 0x%X", ErrDoubleFree, uint32(p))
	}

	a.stats.BytesFreed += int64(h.Size())
	c.Tag(b, h.WithFree(true))
	a.touchTags(c)
	a.free.insert(c)
	a.coalesce(c)
	return nil
}

// coalesce merges the free chunk c with a free predecessor and then with a
// free successor. The surviving chunk keeps its own list position and the
// absorbed one is unlinked.
func (a *Allocator) coalesce(c format.Chunk) format.Chunk {
	b := a.r.Bytes()

	// The first chunk's predecessor footer is the prologue, which is
	// allocated, so this never reaches before the chunk area.
	if c.PrevFooter(b).IsFree() {
		prev := c.Prev(b)
		size := prev.Header(b).Size() + c.Header(b).Size()
		a.free.remove(c)
		prev.Tag(b, format.Encode(size, true))
		a.touchTags(prev)
		a.stats.CoalesceBackward++
		if a.debug {
			a.log.Debug("coalesce backward", "chunk", prev.Offset(), "absorbed", c.Offset(), "size", size)
		}
		c = prev
	}

	next := c.Next(b)
	if next.Offset() != format.SentinelOffset(len(b)) && next.Header(b).IsFree() {
		size := c.Header(b).Size() + next.Header(b).Size()
		a.free.remove(next)
		c.Tag(b, format.Encode(size, true))
		a.touchTags(c)
		a.stats.CoalesceForward++
		if a.debug {
			a.log.Debug("coalesce forward", "chunk", c.Offset(), "absorbed", next.Offset(), "size", size)
		}
	}
	return c
}

// Realloc moves the block at p into a new chunk of n bytes, copying
// min(capacity, n) payload bytes, and frees the old chunk.
//
// Realloc(Nil, n) is Alloc(n). Realloc(p, 0) frees p and returns Nil. If the
// new allocation fails the old block is left as it was.
func (a *Allocator) Realloc(p Ptr, n int) (Ptr, []byte, error) {
	a.stats.ReallocCalls++
	if p == Nil {
		return a.Alloc(n)
	}
	if n < 0 || n > maxRequest {
		return Nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	if n == 0 {
		return Nil, nil, a.Free(p)
	}

	c, err := a.chunkOf(p)
	if err != nil {
		a.log.Warn("realloc of invalid pointer", "ptr", p, "err", err)
		return Nil, nil, err
	}
	if h := c.Header(a.r.Bytes()); h.IsFree() {
		a.log.Warn("realloc of a chunk that is not allocated", "ptr", p, "chunk", c.Offset())
		return Nil, nil, fmt.Errorf("%w: ptr 0x%X is free", ErrBadPtr, uint32(p))
	}

	np, view, err := a.Alloc(n)
	if err != nil {
		return Nil, nil, err
	}

	// The region may have grown; take the bytes again.
	old := c.PayloadBytes(a.r.Bytes())
	k := min(len(old), n)
	copy(view[:k], old[:k])
	a.touch(int(np), k)

	if err := a.Free(p); err != nil {
		return Nil, nil, err
	}
	return np, view, nil
}

// chunkOf maps a payload pointer to its chunk after checking that it sits in
// the chunk area, is aligned, and that the tags at both ends agree.
func (a *Allocator) chunkOf(p Ptr) (format.Chunk, error) {
	b := a.r.Bytes()
	end := format.SentinelOffset(len(b))

	off := int(p) - format.HeaderSize
	if p == Nil || off < format.FirstChunkOffset || off+format.MinChunkSize > end ||
		!format.IsAligned(int(p)) {
		return 0, fmt.Errorf("%w: 0x%X outside chunk area", ErrBadPtr, uint32(p))
	}

	c := format.Chunk(off)
	h := c.Header(b)
	size := h.Size()
	if size < format.MinChunkSize || off+size > end {
		return 0, fmt.Errorf("%w: 0x%X has header %v", ErrBadPtr, uint32(p), h)
	}
	if f := c.Footer(b); f != h {
		return 0, fmt.Errorf("%w: 0x%X header %v does not match footer %v", ErrBadPtr, uint32(p), h, f)
	}
	return c, nil
}

// Size returns the current region size in bytes.
func (a *Allocator) Size() int {
	return a.r.Size()
}

// Region returns the underlying region.
func (a *Allocator) Region() heap.Region {
	return a.r
}

// Capacity returns the payload capacity of the allocated chunk at p.
func (a *Allocator) Capacity(p Ptr) (int, error) {
	c, err := a.allocated(p)
	if err != nil {
		return 0, err
	}
	return format.PayloadCapacity(c.Header(a.r.Bytes()).Size()), nil
}

// Bytes returns the full payload of the allocated chunk at p.
func (a *Allocator) Bytes(p Ptr) ([]byte, error) {
	c, err := a.allocated(p)
	if err != nil {
		return nil, err
	}
	return c.PayloadBytes(a.r.Bytes()), nil
}

func (a *Allocator) allocated(p Ptr) (format.Chunk, error) {
	c, err := a.chunkOf(p)
	if err != nil {
		return 0, err
	}
	if c.Header(a.r.Bytes()).IsFree() {
		return 0, fmt.Errorf("%w: ptr 0x%X is free", ErrBadPtr, uint32(p))
	}
	return c, nil
}

// Chunks yields every chunk in address order. The walk stops early at a
// malformed header; Check reports those.
func (a *Allocator) Chunks() iter.Seq[ChunkInfo] {
	return func(yield func(ChunkInfo) bool) {
		b := a.r.Bytes()
		end := format.SentinelOffset(len(b))
		for off := format.FirstChunkOffset; off < end; {
			h := format.Chunk(off).Header(b)
			size := h.Size()
			if size < format.MinChunkSize || off+size > end {
				return
			}
			if !yield(ChunkInfo{Offset: off, Size: size, Free: h.IsFree()}) {
				return
			}
			off += size
		}
	}
}

// FreeChunks yields the free chunks in free-list order.
func (a *Allocator) FreeChunks() iter.Seq[ChunkInfo] {
	return func(yield func(ChunkInfo) bool) {
		b := a.r.Bytes()
		for c := range a.free.all() {
			h := c.Header(b)
			if !yield(ChunkInfo{Offset: c.Offset(), Size: h.Size(), Free: h.IsFree()}) {
				return
			}
		}
	}
}

// FreeCount returns the number of chunks on the free list.
func (a *Allocator) FreeCount() int {
	return a.free.len()
}

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

func (a *Allocator) touch(off, n int) {
	if a.dt != nil && n > 0 {
		a.dt.Add(off, n)
	}
}

// touchTags reports the header and footer words of c as dirty.
func (a *Allocator) touchTags(c format.Chunk) {
	if a.dt == nil {
		return
	}
	b := a.r.Bytes()
	a.dt.Add(c.Offset(), format.HeaderSize)
	a.dt.Add(c.Offset()+c.Header(b).Size()-format.FooterSize, format.FooterSize)
}
