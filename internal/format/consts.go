// Package format houses the low-level chunk encoding for heapkit heaps. It is
// the only package that turns heap byte offsets into header, footer, link and
// payload positions; everything above it works with Chunk handles and Header
// values.
package format

const (
	// WordSize is the width of every header, footer and link field.
	WordSize = 4

	// Alignment is the payload and chunk-size alignment.
	Alignment = 8

	// AlignmentMask is Alignment-1, used by the rounding helpers.
	AlignmentMask = Alignment - 1

	// HeaderSize is the number of bytes preceding every payload.
	HeaderSize = WordSize

	// FooterSize is the size of the boundary tag at the end of every chunk.
	FooterSize = WordSize

	// ChunkOverhead is the per-chunk metadata cost (header + footer).
	ChunkOverhead = HeaderSize + FooterSize

	// LinkSize is the size of one free-list link. Links are uint32 heap offsets.
	LinkSize = WordSize

	// MinChunkSize is the smallest chunk that can hold both free-list links
	// once it is released.
	//
	// Layout of a free chunk:
	//
	//	0x00  header   (size | allocated bit)
	//	0x04  next     (offset of the next free chunk)
	//	0x08  prev     (offset of the previous free chunk)
	//	...   unused
	//	-0x04 footer   (mirror of header)
	MinChunkSize = HeaderSize + 2*LinkSize + FooterSize
)

const (
	// StartMarkerOffset is the offset of the start marker word. It is encoded
	// as an allocated, zero-size tag so nothing coalesces backward past it.
	StartMarkerOffset = 0

	// StartMarkerSize is the size of the start marker.
	StartMarkerSize = WordSize

	// AnchorOffset is the offset of the prologue chunk. Its link fields are the
	// sentinel node of the circular free list.
	AnchorOffset = StartMarkerOffset + StartMarkerSize

	// PrologueSize is the size of the permanently allocated prologue chunk.
	PrologueSize = MinChunkSize

	// FirstChunkOffset is where the first managed chunk starts. Chunks always
	// start at 4 mod 8 so that payloads are 8-byte aligned.
	FirstChunkOffset = AnchorOffset + PrologueSize

	// SentinelSize is the size of the zero-size allocated end sentinel header.
	SentinelSize = HeaderSize

	// HeapOverhead is the fixed number of bytes a heap spends on the start
	// marker, prologue and end sentinel.
	HeapOverhead = StartMarkerSize + PrologueSize + SentinelSize

	// InitialHeapSize is the size requested from the growth provider when a
	// heap is initialized: the fixed overhead plus one minimum free chunk.
	InitialHeapSize = HeapOverhead + MinChunkSize

	// MaxChunkSize is the largest size a header can encode.
	MaxChunkSize = 1<<32 - Alignment

	// MaxHeapSize is the largest region a heap may span. Chunk handles, links
	// and payload pointers are uint32 offsets.
	MaxHeapSize = MaxChunkSize
)
