package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// IsAligned reports whether n is a multiple of Alignment.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}

// ChunkSize returns the total chunk size needed to serve a payload of n bytes:
// the aligned payload plus header and footer, clamped up to MinChunkSize.
//
// Example:
//
//	ChunkSize(0)   = 16
//	ChunkSize(8)   = 16
//	ChunkSize(16)  = 24
//	ChunkSize(100) = 112
func ChunkSize(n int) int {
	size := Align8(n) + ChunkOverhead
	if size < MinChunkSize {
		return MinChunkSize
	}
	return size
}

// PayloadCapacity returns how many payload bytes a chunk of the given total
// size can hold.
func PayloadCapacity(size int) int {
	if size < ChunkOverhead {
		return 0
	}
	return size - ChunkOverhead
}
