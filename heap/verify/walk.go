package verify

import (
	"maps"
	"slices"

	"github.com/joshuapare/heapkit/internal/format"
)

// physicalWalk is the result of walking chunks by address from the first
// chunk towards the end sentinel.
type physicalWalk struct {
	chunks     []format.Chunk
	sum        int
	terminated bool // reached the end sentinel exactly
	errs       []*ValidationError
}

// walkPhysical walks the heap by address. It stops at the first malformed
// header, so a corrupt size can never send it out of bounds.
func walkPhysical(data []byte) physicalWalk {
	var w physicalWalk
	end := format.SentinelOffset(len(data))
	off := format.FirstChunkOffset

	for {
		if off > end {
			w.errs = append(w.errs, violation("Conservation", off,
				"walk overran end sentinel at 0x%X", end))
			return w
		}
		c := format.Chunk(off)
		h := c.Header(data)
		if format.IsMarker(h) {
			if off != end {
				w.errs = append(w.errs, violation("Conservation", off,
					"zero-size chunk before end sentinel at 0x%X", end))
				return w
			}
			w.terminated = true
			return w
		}
		if off == end {
			w.errs = append(w.errs, violation("Conservation", off,
				"walk ended on %v instead of the end sentinel", h))
			return w
		}

		size := h.Size()
		if size < format.MinChunkSize || !format.IsAligned(size) || off+size > end {
			w.errs = append(w.errs, violation("Conservation", off,
				"malformed chunk size %d (remaining %d)", size, end-off))
			return w
		}
		w.chunks = append(w.chunks, c)
		w.sum += size
		off += size
	}
}

// walkFree follows free-list links from the anchor in one direction and
// returns the members in visit order. The walk stops when it returns to the
// anchor, on an out-of-bounds link, or after more steps than the heap could
// possibly hold chunks.
func walkFree(data []byte, forward bool) ([]format.Chunk, []*ValidationError) {
	anchor := format.Chunk(format.AnchorOffset)
	end := format.SentinelOffset(len(data))
	limit := len(data)/format.MinChunkSize + 1

	step := format.Chunk.NextFree
	dir := "forward"
	if !forward {
		step = format.Chunk.PrevFree
		dir = "backward"
	}

	var members []format.Chunk
	var errs []*ValidationError
	for c := step(anchor, data); c != anchor; c = step(c, data) {
		off := c.Offset()
		if off < format.FirstChunkOffset || off+format.MinChunkSize > end ||
			off%format.Alignment != format.HeaderSize {
			errs = append(errs, violation("FreeList", off,
				"%s link points outside the chunk area", dir))
			break
		}
		if len(members) >= limit {
			errs = append(errs, violation("FreeList", off,
				"%s walk did not return to the anchor after %d steps", dir, limit))
			break
		}
		if h := c.Header(data); !h.IsFree() {
			errs = append(errs, violation("FreeList", off,
				"chunk in %s free list is not free (%v)", dir, h))
		}
		members = append(members, c)
	}
	return members, errs
}

// Conservation checks that chunk sizes sum to the region size and that the
// physical walk terminates exactly at the end sentinel.
func Conservation(data []byte) []*ValidationError {
	if len(data) < format.HeapOverhead {
		return Layout(data)
	}
	w := walkPhysical(data)
	errs := w.errs
	if !w.terminated {
		errs = append(errs, violation("Conservation", -1,
			"physical walk did not terminate at the end sentinel"))
		return errs
	}
	if got := w.sum + format.HeapOverhead; got != len(data) {
		v := violation("Conservation", -1,
			"chunk sizes sum to %d (+%d overhead), region is %d bytes",
			w.sum, format.HeapOverhead, len(data))
		v.Details = map[string]interface{}{
			"sum":      w.sum,
			"overhead": format.HeapOverhead,
			"size":     len(data),
		}
		errs = append(errs, v)
	}
	return errs
}

// Footers checks that every chunk's footer mirrors its header.
func Footers(data []byte) []*ValidationError {
	if len(data) < format.HeapOverhead {
		return nil
	}
	var errs []*ValidationError
	for _, c := range walkPhysical(data).chunks {
		if h, f := c.Header(data), c.Footer(data); h != f {
			errs = append(errs, violation("Footers", c.Offset(),
				"footer %v does not match header %v", f, h))
		}
	}
	return errs
}

// NoAdjacentFree checks that no two physically adjacent chunks are both free.
func NoAdjacentFree(data []byte) []*ValidationError {
	if len(data) < format.HeapOverhead {
		return nil
	}
	var errs []*ValidationError
	chunks := walkPhysical(data).chunks
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if prev.Header(data).IsFree() && cur.Header(data).IsFree() {
			errs = append(errs, violation("NoAdjacentFree", cur.Offset(),
				"free chunk follows free chunk at 0x%X", prev.Offset()))
		}
	}
	return errs
}

// FreeList walks the free list forward and backward from the anchor, checks
// that every member is free, that links are symmetric, and that both
// directions visit the same chunks.
func FreeList(data []byte) []*ValidationError {
	if len(data) < format.HeapOverhead {
		return nil
	}
	fwd, errs := walkFree(data, true)
	bwd, berrs := walkFree(data, false)
	errs = append(errs, berrs...)

	nodes := append([]format.Chunk{format.Chunk(format.AnchorOffset)}, fwd...)
	for _, c := range nodes {
		n := c.NextFree(data)
		if n.Offset()+format.MinChunkSize-format.FooterSize > len(data) {
			continue // already reported by the forward walk
		}
		if back := n.PrevFree(data); back != c {
			errs = append(errs, violation("FreeList", c.Offset(),
				"next link 0x%X points back to 0x%X", n.Offset(), back.Offset()))
		}
	}

	if len(fwd) != len(bwd) {
		v := violation("FreeList", -1,
			"forward walk found %d chunks, backward walk found %d", len(fwd), len(bwd))
		v.Details = map[string]interface{}{"forward": len(fwd), "backward": len(bwd)}
		errs = append(errs, v)
		return errs
	}
	seen := make(map[format.Chunk]struct{}, len(fwd))
	for _, c := range fwd {
		seen[c] = struct{}{}
	}
	for _, c := range bwd {
		if _, ok := seen[c]; !ok {
			errs = append(errs, violation("FreeList", c.Offset(),
				"chunk reached backward but not forward"))
		}
	}
	return errs
}

// Coherence checks that a chunk is on the free list if and only if its
// allocated bit is clear.
func Coherence(data []byte) []*ValidationError {
	if len(data) < format.HeapOverhead {
		return nil
	}
	members, _ := walkFree(data, true)
	onList := make(map[format.Chunk]struct{}, len(members))
	for _, c := range members {
		onList[c] = struct{}{}
	}

	var errs []*ValidationError
	for _, c := range walkPhysical(data).chunks {
		_, listed := onList[c]
		free := c.Header(data).IsFree()
		switch {
		case free && !listed:
			errs = append(errs, violation("Coherence", c.Offset(),
				"free chunk is missing from the free list"))
		case !free && listed:
			errs = append(errs, violation("Coherence", c.Offset(),
				"allocated chunk is on the free list"))
		}
		delete(onList, c)
	}
	stray := slices.Sorted(maps.Keys(onList))
	for _, c := range stray {
		errs = append(errs, violation("Coherence", c.Offset(),
			"free list entry is not a chunk boundary"))
	}
	return errs
}
