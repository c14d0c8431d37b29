package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestHeaderBitLayout(t *testing.T) {
	h := Encode(48, false)
	if uint32(h) != 48|1 {
		t.Fatalf("allocated header = %#x, want %#x", uint32(h), 48|1)
	}
	h = Encode(48, true)
	if uint32(h) != 48 {
		t.Fatalf("free header = %#x, want %#x", uint32(h), 48)
	}

	// The on-heap word is the little-endian header value.
	buf := make([]byte, 64)
	c := Chunk(4)
	c.Tag(buf, Encode(24, false))
	if got := binary.LittleEndian.Uint32(buf[4:]); got != 25 {
		t.Fatalf("header word = %d, want 25", got)
	}
	if got := binary.LittleEndian.Uint32(buf[4+24-4:]); got != 25 {
		t.Fatalf("footer word = %d, want 25", got)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		size int
		free bool
	}{
		{0, false},
		{16, true},
		{16, false},
		{4096, true},
		{MaxChunkSize, false},
	}
	for _, tc := range cases {
		size, free := Decode(Encode(tc.size, tc.free))
		if size != tc.size || free != tc.free {
			t.Errorf("Decode(Encode(%d, %v)) = (%d, %v)", tc.size, tc.free, size, free)
		}
	}
}

func TestHeaderAccessors(t *testing.T) {
	h := Encode(32, true)
	if !h.IsFree() || h.Size() != 32 {
		t.Fatalf("unexpected header %v", h)
	}
	h = h.WithFree(false)
	if h.IsFree() || h.Size() != 32 {
		t.Fatalf("WithFree(false) = %v", h)
	}
	h = h.WithSize(64)
	if h.IsFree() || h.Size() != 64 {
		t.Fatalf("WithSize(64) = %v", h)
	}
	if h.String() != "64/alloc" {
		t.Fatalf("String() = %q", h.String())
	}
}

func TestEncodeRejectsBadSizes(t *testing.T) {
	for _, size := range []int{-8, 3, 17, MaxChunkSize + 8} {
		func() {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !errors.Is(err, ErrBadEncoding) {
					t.Errorf("Encode(%d) panic = %v, want ErrBadEncoding", size, r)
				}
			}()
			Encode(size, true)
		}()
	}
}

func TestTagRejectsUndersizedChunk(t *testing.T) {
	buf := make([]byte, 32)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic tagging an 8-byte chunk")
		}
	}()
	Chunk(4).Tag(buf, Encode(8, true))
}

func TestChunkSize(t *testing.T) {
	cases := map[int]int{
		0:   MinChunkSize,
		1:   MinChunkSize,
		8:   MinChunkSize,
		9:   24,
		16:  24,
		50:  64,
		100: 112,
	}
	for req, want := range cases {
		if got := ChunkSize(req); got != want {
			t.Errorf("ChunkSize(%d) = %d, want %d", req, got, want)
		}
	}
	if PayloadCapacity(24) != 16 || PayloadCapacity(4) != 0 {
		t.Fatalf("PayloadCapacity mismatch")
	}
}

func TestChunkNavigation(t *testing.T) {
	buf := make([]byte, 128)
	PutMarker(buf, StartMarkerOffset)
	Chunk(AnchorOffset).Tag(buf, Encode(PrologueSize, false))

	a := Chunk(FirstChunkOffset)
	a.Tag(buf, Encode(24, false))
	b := a.Next(buf)
	if b != Chunk(FirstChunkOffset+24) {
		t.Fatalf("Next = %d", b)
	}
	b.Tag(buf, Encode(32, true))
	if b.Prev(buf) != a {
		t.Fatalf("Prev = %d, want %d", b.Prev(buf), a)
	}
	if a.Prev(buf) != Chunk(AnchorOffset) {
		t.Fatalf("first chunk Prev = %d, want prologue", a.Prev(buf))
	}
	if b.PrevFooter(buf) != a.Header(buf) {
		t.Fatalf("predecessor footer disagrees with header")
	}
	if b.Footer(buf) != b.Header(buf) {
		t.Fatalf("footer %v != header %v", b.Footer(buf), b.Header(buf))
	}

	end := b.Next(buf)
	PutMarker(buf, end.Offset())
	if !IsMarker(end.Header(buf)) {
		t.Fatalf("sentinel not recognised")
	}

	if a.Payload()%Alignment != 0 || b.Payload()%Alignment != 0 {
		t.Fatalf("payloads not aligned: %d %d", a.Payload(), b.Payload())
	}
	if ChunkOf(b.Payload()) != b {
		t.Fatalf("ChunkOf(Payload()) mismatch")
	}
	if got := len(a.PayloadBytes(buf)); got != 16 {
		t.Fatalf("payload capacity = %d, want 16", got)
	}
}

func TestChunkLinks(t *testing.T) {
	buf := make([]byte, 64)
	c := Chunk(FirstChunkOffset)
	c.Tag(buf, Encode(MinChunkSize, true))
	c.SetNextFree(buf, Chunk(AnchorOffset))
	c.SetPrevFree(buf, Chunk(44))
	if c.NextFree(buf) != Chunk(AnchorOffset) || c.PrevFree(buf) != Chunk(44) {
		t.Fatalf("links = (%d, %d)", c.NextFree(buf), c.PrevFree(buf))
	}
	// Links must sit between header and footer.
	if c.Footer(buf) != Encode(MinChunkSize, true) {
		t.Fatalf("links clobbered footer: %v", c.Footer(buf))
	}
}
