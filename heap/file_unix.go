//go:build linux || darwin

package heap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a region backed by a memory-mapped file.
//
// The whole capacity is mapped once at open time, so the base address never
// changes; Grow only extends the file underneath the mapping. Bytes past the
// current file size are never touched.
type File struct {
	f    *os.File
	data []byte // mapping of max bytes
	size int
}

// OpenFile creates (or truncates) path and maps max bytes of it.
// A max of zero or less selects DefaultMaxSize.
func OpenFile(path string, max int) (*File, error) {
	if max <= 0 {
		max = DefaultMaxSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}

	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		max,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("heap: mmap failed: %w", err)
	}

	return &File{f: f, data: data}, nil
}

// Grow extends the backing file by n bytes. The new bytes are zero.
func (r *File) Grow(n int) (int, error) {
	if r == nil || r.data == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrBadGrow
	}
	base := r.size
	if n > len(r.data)-base {
		return 0, fmt.Errorf("%w: grow %d at size %d (max %d)", ErrExhausted, n, base, len(r.data))
	}
	if err := r.f.Truncate(int64(base + n)); err != nil {
		return 0, fmt.Errorf("heap: failed to extend file: %w", err)
	}
	r.size = base + n
	return base, nil
}

// Size returns the current region size.
func (r *File) Size() int { return r.size }

// Bytes returns the mapped region up to its current size.
func (r *File) Bytes() []byte {
	if r.data == nil {
		return nil
	}
	return r.data[:r.size:r.size]
}

// Sync flushes [off, off+length) with msync. The range is widened to page
// boundaries and clipped to the current size.
func (r *File) Sync(off, length int) error {
	if r.data == nil {
		return ErrClosed
	}
	page := os.Getpagesize()
	start := (off / page) * page
	end := min(off+length, r.size)
	if start >= end {
		return nil
	}
	return unix.Msync(r.data[start:end], unix.MS_SYNC)
}

// FD returns the file descriptor of the backing file, or -1 once closed.
func (r *File) FD() int {
	if r == nil || r.f == nil {
		return -1
	}
	return int(r.f.Fd())
}

// Close unmaps the region and closes the file.
func (r *File) Close() error {
	var errs []error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			errs = append(errs, fmt.Errorf("heap: munmap failed: %w", err))
		}
		r.data = nil
	}
	if r.f != nil {
		if err := r.f.Close(); err != nil {
			errs = append(errs, err)
		}
		r.f = nil
	}
	return errors.Join(errs...)
}
