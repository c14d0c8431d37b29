package alloc

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/joshuapare/heapkit/heap"
)

func newBenchAllocator(b *testing.B) *Allocator {
	b.Helper()
	a, err := New(heap.NewMemory(256<<20), &Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		b.Fatal(err)
	}
	return a
}

// Benchmark_Alloc_SmallBlocks measures the grow path for a stream of small requests.
func Benchmark_Alloc_SmallBlocks(b *testing.B) {
	a := newBenchAllocator(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		if _, _, err := a.Alloc(16 + (i%16)*8); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_AllocFree_Churn keeps a window of live blocks and recycles them.
func Benchmark_AllocFree_Churn(b *testing.B) {
	a := newBenchAllocator(b)
	rng := rand.New(rand.NewSource(1))
	window := make([]Ptr, 256)
	for i := range window {
		p, _, err := a.Alloc(32 + rng.Intn(256))
		if err != nil {
			b.Fatal(err)
		}
		window[i] = p
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		slot := i % len(window)
		if err := a.Free(window[slot]); err != nil {
			b.Fatal(err)
		}
		p, _, err := a.Alloc(32 + rng.Intn(256))
		if err != nil {
			b.Fatal(err)
		}
		window[slot] = p
	}
}
