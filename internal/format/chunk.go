package format

import "fmt"

// allocatedBit is the low header bit. Sizes are multiples of Alignment, so the
// three low bits are always available for flags; only bit 0 is used.
const allocatedBit Header = 1

// Header is the bit-packed boundary tag stored at both ends of a chunk.
//
// Layout (uint32, little-endian on the heap):
//
//	bit  0     allocated flag (1 = allocated, 0 = free)
//	bits 1-2   reserved, always zero
//	bits 3-31  total chunk size in bytes (multiple of 8)
type Header uint32

// Encode packs a size and free flag into a Header. It panics with
// ErrBadEncoding if size is negative, misaligned or too large.
func Encode(size int, free bool) Header {
	if size < 0 || size > MaxChunkSize || !IsAligned(size) {
		panic(fmt.Errorf("%w: size %d", ErrBadEncoding, size))
	}
	h := Header(size)
	if !free {
		h |= allocatedBit
	}
	return h
}

// Decode unpacks a Header into its size and free flag.
func Decode(h Header) (size int, free bool) {
	return h.Size(), h.IsFree()
}

// Size returns the total chunk size including header and footer.
func (h Header) Size() int {
	return int(h &^ AlignmentMask)
}

// IsFree reports whether the allocated bit is clear.
func (h Header) IsFree() bool {
	return h&allocatedBit == 0
}

// WithSize returns a copy of h carrying a new size and the same flag.
func (h Header) WithSize(size int) Header {
	return Encode(size, h.IsFree())
}

// WithFree returns a copy of h with the allocated bit set or cleared.
func (h Header) WithFree(free bool) Header {
	if free {
		return h &^ allocatedBit
	}
	return h | allocatedBit
}

func (h Header) String() string {
	state := "alloc"
	if h.IsFree() {
		state = "free"
	}
	return fmt.Sprintf("%d/%s", h.Size(), state)
}

// Chunk is a handle to a chunk: the heap offset of its header. All accessors
// take the heap bytes explicitly so a Chunk stays valid across region growth.
type Chunk uint32

// ChunkOf returns the chunk owning the payload at the given heap offset.
func ChunkOf(payload uint32) Chunk {
	return Chunk(payload - HeaderSize)
}

// Offset returns the chunk's heap offset as an int.
func (c Chunk) Offset() int {
	return int(c)
}

// Payload returns the heap offset of the first payload byte.
func (c Chunk) Payload() uint32 {
	return uint32(c) + HeaderSize
}

// Header decodes the chunk header.
func (c Chunk) Header(b []byte) Header {
	return Header(ReadU32(b, int(c)))
}

// SetHeader writes the header word only.
func (c Chunk) SetHeader(b []byte, h Header) {
	PutU32(b, int(c), uint32(h))
}

// Footer decodes the boundary tag at the end of the chunk. The chunk's size is
// taken from its header, so the caller must know the header is sane.
func (c Chunk) Footer(b []byte) Header {
	return Header(ReadU32(b, int(c)+c.Header(b).Size()-FooterSize))
}

// SetFooter writes h at the end of a chunk of h.Size() bytes.
func (c Chunk) SetFooter(b []byte, h Header) {
	PutU32(b, int(c)+h.Size()-FooterSize, uint32(h))
}

// Tag writes h to both the header and the footer. It panics with
// ErrBadEncoding when h describes a chunk smaller than MinChunkSize.
func (c Chunk) Tag(b []byte, h Header) {
	size := h.Size()
	if size < MinChunkSize {
		panic(fmt.Errorf("%w: chunk at %d tagged with size %d", ErrBadEncoding, c, size))
	}
	PutU32(b, int(c), uint32(h))
	PutU32(b, int(c)+size-FooterSize, uint32(h))
}

// Next returns the physically following chunk (offset + size).
func (c Chunk) Next(b []byte) Chunk {
	return Chunk(int(c) + c.Header(b).Size())
}

// PrevFooter decodes the predecessor's footer, the word just before the header.
func (c Chunk) PrevFooter(b []byte) Header {
	return Header(ReadU32(b, int(c)-FooterSize))
}

// Prev returns the physically preceding chunk (offset - predecessor size).
func (c Chunk) Prev(b []byte) Chunk {
	return Chunk(int(c) - c.PrevFooter(b).Size())
}

// NextFree reads the next-free link of a free chunk.
func (c Chunk) NextFree(b []byte) Chunk {
	return Chunk(ReadU32(b, int(c)+HeaderSize))
}

// SetNextFree writes the next-free link of a free chunk.
func (c Chunk) SetNextFree(b []byte, n Chunk) {
	PutU32(b, int(c)+HeaderSize, uint32(n))
}

// PrevFree reads the previous-free link of a free chunk.
func (c Chunk) PrevFree(b []byte) Chunk {
	return Chunk(ReadU32(b, int(c)+HeaderSize+LinkSize))
}

// SetPrevFree writes the previous-free link of a free chunk.
func (c Chunk) SetPrevFree(b []byte, p Chunk) {
	PutU32(b, int(c)+HeaderSize+LinkSize, uint32(p))
}

// PayloadBytes returns the full payload capacity of the chunk as a slice of b.
func (c Chunk) PayloadBytes(b []byte) []byte {
	start := int(c) + HeaderSize
	end := int(c) + c.Header(b).Size() - FooterSize
	return b[start:end:end]
}

// PutMarker writes an allocated, zero-size tag at off. It is used for the
// start marker and for the end sentinel, the only places a zero size is legal.
func PutMarker(b []byte, off int) {
	PutU32(b, off, uint32(allocatedBit))
}

// IsMarker reports whether h is an allocated, zero-size tag.
func IsMarker(h Header) bool {
	return h == allocatedBit
}

// SentinelOffset returns where the end sentinel lives in a heap of the given size.
func SentinelOffset(heapSize int) int {
	return heapSize - SentinelSize
}
