package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGrowContiguous(t *testing.T) {
	m := NewMemory(64)
	require.Equal(t, 0, m.Size())

	base, err := m.Grow(16)
	require.NoError(t, err)
	assert.Equal(t, 0, base)

	copy(m.Bytes(), []byte("0123456789abcdef"))
	first := &m.Bytes()[0]

	base, err = m.Grow(32)
	require.NoError(t, err)
	assert.Equal(t, 16, base)
	assert.Equal(t, 48, m.Size())

	// Earlier bytes are untouched and the base did not move.
	assert.Equal(t, "0123456789abcdef", string(m.Bytes()[:16]))
	assert.Same(t, first, &m.Bytes()[0])
	assert.Equal(t, make([]byte, 32), m.Bytes()[16:])
}

func TestMemoryExhausted(t *testing.T) {
	m := NewMemory(32)
	_, err := m.Grow(24)
	require.NoError(t, err)

	_, err = m.Grow(16)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 24, m.Size(), "failed grow must not change the size")

	_, err = m.Grow(-1)
	require.ErrorIs(t, err, ErrBadGrow)
}

func TestMemoryDefaultMax(t *testing.T) {
	m := NewMemory(0)
	assert.Equal(t, DefaultMaxSize, m.Max())
}
