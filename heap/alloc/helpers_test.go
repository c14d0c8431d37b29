package alloc

import (
	"bytes"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/verify"
)

// newTestAllocator creates an allocator over an in-memory region of limit bytes
// (zero for the default) and captures its log output.
func newTestAllocator(t testing.TB, limit int) (*Allocator, *bytes.Buffer) {
	t.Helper()
	return newTestAllocatorWith(t, limit, &Options{})
}

func newTestAllocatorWith(t testing.TB, limit int, opts *Options) (*Allocator, *bytes.Buffer) {
	t.Helper()
	return newAllocatorOver(t, heap.NewMemory(limit), opts)
}

// newTestAllocatorOver creates an allocator over r with default options.
func newTestAllocatorOver(t testing.TB, r heap.Region) (*Allocator, *bytes.Buffer) {
	t.Helper()
	return newAllocatorOver(t, r, &Options{})
}

func newAllocatorOver(t testing.TB, r heap.Region, opts *Options) (*Allocator, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	a, err := New(r, opts)
	require.NoError(t, err)
	return a, &logs
}

// requireInvariants fails the test if any heap invariant is violated.
func requireInvariants(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, verify.AllInvariants(a.Region().Bytes()))
}

// chunkMap returns every chunk in address order.
func chunkMap(a *Allocator) []ChunkInfo {
	return slices.Collect(a.Chunks())
}

// snapshot copies the heap bytes.
func snapshot(a *Allocator) []byte {
	return bytes.Clone(a.Region().Bytes())
}

// fill writes a recognisable pattern derived from seed.
func fill(buf []byte, seed byte) {
	for i := range buf {
		buf[i] = seed + byte(i)
	}
}

// requirePattern checks a pattern written by fill.
func requirePattern(t testing.TB, buf []byte, seed byte) {
	t.Helper()
	for i := range buf {
		if buf[i] != seed+byte(i) {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, buf[i], seed+byte(i))
		}
	}
}

// recordingTracker remembers every dirty range it is given.
type recordingTracker struct {
	ranges [][2]int
}

func (r *recordingTracker) Add(off, length int) {
	r.ranges = append(r.ranges, [2]int{off, length})
}

// covers reports whether some recorded range contains [off, off+n).
func (r *recordingTracker) covers(off, n int) bool {
	for _, rg := range r.ranges {
		if rg[0] <= off && off+n <= rg[0]+rg[1] {
			return true
		}
	}
	return false
}
