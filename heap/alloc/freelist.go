package alloc

import (
	"iter"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
)

// anchor is the prologue chunk. Its link fields are the sentinel node of the
// circular free list, so insert and remove never special-case an empty list.
const anchor = format.Chunk(format.AnchorOffset)

// freeList is the explicit circular doubly linked list of free chunks. The
// links live inside the free chunks themselves.
type freeList struct {
	r  heap.Region
	dt DirtyTracker
}

// reset makes the anchor point at itself (the empty list).
func (l *freeList) reset() {
	b := l.r.Bytes()
	anchor.SetNextFree(b, anchor)
	anchor.SetPrevFree(b, anchor)
	l.touch(anchor)
}

// insert puts c at the head of the list, right after the anchor.
func (l *freeList) insert(c format.Chunk) {
	b := l.r.Bytes()
	head := anchor.NextFree(b)
	c.SetNextFree(b, head)
	c.SetPrevFree(b, anchor)
	head.SetPrevFree(b, c)
	anchor.SetNextFree(b, c)
	l.touch(c, head, anchor)
}

// remove unlinks c through its own links. Removing the only member leaves
// the anchor pointing at itself.
func (l *freeList) remove(c format.Chunk) {
	b := l.r.Bytes()
	next, prev := c.NextFree(b), c.PrevFree(b)
	prev.SetNextFree(b, next)
	next.SetPrevFree(b, prev)
	l.touch(prev, next)
}

// replace puts repl at old's position in the list. Split uses it so the
// remainder keeps the list order of the chunk it was cut from.
func (l *freeList) replace(old, repl format.Chunk) {
	b := l.r.Bytes()
	next, prev := old.NextFree(b), old.PrevFree(b)
	repl.SetNextFree(b, next)
	repl.SetPrevFree(b, prev)
	prev.SetNextFree(b, repl)
	next.SetPrevFree(b, repl)
	l.touch(repl, prev, next)
}

// all yields the members in list order. The walk ends when it returns to
// the anchor, when a link leaves the chunk area, or after as many steps as
// the heap could hold chunks, so a corrupted cycle cannot spin forever.
func (l *freeList) all() iter.Seq[format.Chunk] {
	return func(yield func(format.Chunk) bool) {
		b := l.r.Bytes()
		end := format.SentinelOffset(len(b))
		limit := len(b) / format.MinChunkSize
		c := anchor.NextFree(b)
		for steps := 0; c != anchor && steps < limit; steps++ {
			if c.Offset() < format.FirstChunkOffset || c.Offset()+format.MinChunkSize > end {
				return
			}
			if !yield(c) {
				return
			}
			c = c.NextFree(b)
		}
	}
}

// len counts the members.
func (l *freeList) len() int {
	n := 0
	for range l.all() {
		n++
	}
	return n
}

// touch reports the link words of each chunk as dirty.
func (l *freeList) touch(cs ...format.Chunk) {
	if l.dt == nil {
		return
	}
	for _, c := range cs {
		l.dt.Add(c.Offset()+format.HeaderSize, 2*format.LinkSize)
	}
}
