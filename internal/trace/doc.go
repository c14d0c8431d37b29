// Package trace reads allocation trace files and replays them against an
// allocator, checking every returned block and measuring space utilization
// and throughput.
//
// # File Format
//
// A trace starts with four header lines followed by one request per line:
//
//	20000        suggested heap size (informational)
//	3            number of distinct block ids
//	5            number of requests
//	1            weight
//	a 0 512      allocate 512 bytes as block 0
//	a 1 128
//	r 0 640      reallocate block 0 to 640 bytes
//	f 1          free block 1
//	f 0
//
// Blank lines and lines starting with '#' are ignored.
//
// # Replay Checks
//
// Replay fills every block with a pattern derived from its id and fails with
// ErrMismatch when a payload is misaligned, leaves the heap, overlaps another
// live block, or has lost its contents by the time it is reallocated or freed.
package trace
