//go:build !linux && !darwin

package heap

// File is a region backed by a memory-mapped file. It is only available on
// linux and darwin.
type File struct{}

// OpenFile always fails with ErrUnsupported on this platform.
func OpenFile(path string, max int) (*File, error) {
	return nil, ErrUnsupported
}

func (r *File) Grow(n int) (int, error)    { return 0, ErrUnsupported }
func (r *File) Size() int                  { return 0 }
func (r *File) Bytes() []byte              { return nil }
func (r *File) Sync(off, length int) error { return ErrUnsupported }
func (r *File) FD() int                    { return -1 }
func (r *File) Close() error               { return nil }
