package trace

import (
	"fmt"
	"slices"
	"time"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/format"
)

// Allocator is the surface Replay drives. *alloc.Allocator satisfies it.
type Allocator interface {
	Alloc(n int) (alloc.Ptr, []byte, error)
	Free(p alloc.Ptr) error
	Realloc(p alloc.Ptr, n int) (alloc.Ptr, []byte, error)
	Size() int
}

var _ Allocator = (*alloc.Allocator)(nil)

// Result summarizes one replay.
type Result struct {
	Name        string        `json:"name"`
	Ops         int           `json:"ops"`
	PeakPayload int           `json:"peak_payload"` // largest total of live payload bytes
	HeapSize    int           `json:"heap_size"`    // region size after the replay
	Utilization float64       `json:"utilization"`  // PeakPayload / HeapSize
	Elapsed     time.Duration `json:"elapsed_ns"`
	Throughput  float64       `json:"ops_per_sec"`
}

// block is a live block as the replay sees it.
type block struct {
	p   alloc.Ptr
	buf []byte
}

// Replay runs every request of tr against a and checks each block the
// allocator hands back. It stops at the first allocator error or failed
// check; the error names the trace line.
//
// Elapsed covers the whole replay including the checks.
func Replay(a Allocator, tr *Trace) (*Result, error) {
	if tr.NumIDs < 0 || tr.NumIDs > MaxIDs {
		return nil, fmt.Errorf("%w: %s: %d block ids, limit is %d", ErrSyntax, tr.Name, tr.NumIDs, MaxIDs)
	}
	blocks := make([]block, tr.NumIDs)
	var live spans
	payload, peak := 0, 0

	start := time.Now()
	for _, op := range tr.Ops {
		if op.ID < 0 || op.ID >= len(blocks) {
			return nil, opError(tr, op, fmt.Errorf("%w: id out of range [0, %d)", ErrSyntax, len(blocks)))
		}
		b := &blocks[op.ID]

		switch op.Kind {
		case KindAlloc:
			p, buf, err := a.Alloc(op.Size)
			if err != nil {
				return nil, opError(tr, op, err)
			}
			if err := live.add(a, p, op.Size); err != nil {
				return nil, opError(tr, op, err)
			}
			fillBlock(buf, op.ID)
			*b = block{p: p, buf: buf}
			payload += op.Size

		case KindRealloc:
			if err := checkBlock(b.buf, op.ID); err != nil {
				return nil, opError(tr, op, err)
			}
			oldSize := len(b.buf)
			live.remove(b.p)
			p, buf, err := a.Realloc(b.p, op.Size)
			if err != nil {
				return nil, opError(tr, op, err)
			}
			if op.Size == 0 {
				*b = block{}
				payload -= oldSize
				break
			}
			if err := checkBlock(buf[:min(oldSize, op.Size)], op.ID); err != nil {
				return nil, opError(tr, op, fmt.Errorf("content not preserved: %w", err))
			}
			if err := live.add(a, p, op.Size); err != nil {
				return nil, opError(tr, op, err)
			}
			fillBlock(buf, op.ID)
			*b = block{p: p, buf: buf}
			payload += op.Size - oldSize

		case KindFree:
			if b.p == alloc.Nil {
				// Already released by a zero-size realloc.
				break
			}
			if err := checkBlock(b.buf, op.ID); err != nil {
				return nil, opError(tr, op, err)
			}
			live.remove(b.p)
			if err := a.Free(b.p); err != nil {
				return nil, opError(tr, op, err)
			}
			payload -= len(b.buf)
			*b = block{}
		}
		peak = max(peak, payload)
	}
	elapsed := time.Since(start)

	res := &Result{
		Name:        tr.Name,
		Ops:         len(tr.Ops),
		PeakPayload: peak,
		HeapSize:    a.Size(),
		Elapsed:     elapsed,
	}
	if res.HeapSize > 0 {
		res.Utilization = float64(peak) / float64(res.HeapSize)
	}
	if elapsed > 0 {
		res.Throughput = float64(res.Ops) / elapsed.Seconds()
	}
	return res, nil
}

func opError(tr *Trace, op Op, err error) error {
	return fmt.Errorf("%s:%d: %s block %d (%d bytes): %w", tr.Name, op.Line, op.Kind, op.ID, op.Size, err)
}

// fillBlock writes a pattern that depends on the block id and the offset.
func fillBlock(buf []byte, id int) {
	for i := range buf {
		buf[i] = byte(id*31 + i)
	}
}

func checkBlock(buf []byte, id int) error {
	for i := range buf {
		if want := byte(id*31 + i); buf[i] != want {
			return fmt.Errorf("%w: byte %d is 0x%02X, want 0x%02X", ErrMismatch, i, buf[i], want)
		}
	}
	return nil
}

// span is the payload range [lo, hi) of a live block.
type span struct {
	lo, hi int
}

// spans is the set of live payload ranges, sorted by lo.
type spans []span

// add checks alignment, bounds and overlap for a new block and records it.
// Zero-length blocks still occupy one byte so two of them cannot share an
// address.
func (s *spans) add(a Allocator, p alloc.Ptr, n int) error {
	lo := int(p)
	hi := lo + max(n, 1)
	if !format.IsAligned(lo) {
		return fmt.Errorf("%w: payload 0x%X is not %d-byte aligned", ErrMismatch, lo, format.Alignment)
	}
	if lo < format.FirstChunkOffset || hi > a.Size() {
		return fmt.Errorf("%w: payload [0x%X, 0x%X) lies outside the heap (size %d)", ErrMismatch, lo, hi, a.Size())
	}

	i, _ := slices.BinarySearchFunc(*s, lo, func(e span, t int) int { return e.lo - t })
	if i > 0 && (*s)[i-1].hi > lo {
		prev := (*s)[i-1]
		return fmt.Errorf("%w: payload [0x%X, 0x%X) overlaps [0x%X, 0x%X)", ErrMismatch, lo, hi, prev.lo, prev.hi)
	}
	if i < len(*s) && (*s)[i].lo < hi {
		next := (*s)[i]
		return fmt.Errorf("%w: payload [0x%X, 0x%X) overlaps [0x%X, 0x%X)", ErrMismatch, lo, hi, next.lo, next.hi)
	}
	*s = slices.Insert(*s, i, span{lo: lo, hi: hi})
	return nil
}

func (s *spans) remove(p alloc.Ptr) {
	i, found := slices.BinarySearchFunc(*s, int(p), func(e span, t int) int { return e.lo - t })
	if found {
		*s = slices.Delete(*s, i, i+1)
	}
}
