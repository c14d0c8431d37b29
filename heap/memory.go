package heap

import "fmt"

// Memory is an in-process region: a byte slice whose capacity is reserved up
// front so that growing never moves the base.
type Memory struct {
	buf []byte
}

// NewMemory returns an empty region that can grow to max bytes.
// A max of zero or less selects DefaultMaxSize.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxSize
	}
	return &Memory{buf: make([]byte, 0, max)}
}

// Grow extends the region by n bytes. The new bytes are zero.
func (m *Memory) Grow(n int) (int, error) {
	if n < 0 {
		return 0, ErrBadGrow
	}
	base := len(m.buf)
	if n > cap(m.buf)-base {
		return 0, fmt.Errorf("%w: grow %d at size %d (max %d)", ErrExhausted, n, base, cap(m.buf))
	}
	m.buf = m.buf[:base+n]
	return base, nil
}

// Size returns the current region size.
func (m *Memory) Size() int { return len(m.buf) }

// Bytes returns the region contents.
func (m *Memory) Bytes() []byte { return m.buf }

// Max returns the capacity the region was created with.
func (m *Memory) Max() int { return cap(m.buf) }
