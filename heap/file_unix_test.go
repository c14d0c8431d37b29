//go:build linux || darwin

package heap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGrowAndSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.bin")
	r, err := OpenFile(path, 1<<20)
	require.NoError(t, err)
	defer r.Close()

	base, err := r.Grow(4096)
	require.NoError(t, err)
	assert.Equal(t, 0, base)

	copy(r.Bytes()[100:], "persisted")
	require.NoError(t, r.Sync(100, 9))

	base, err = r.Grow(100)
	require.NoError(t, err)
	assert.Equal(t, 4096, base)
	assert.Equal(t, 4196, r.Size())
	assert.Equal(t, "persisted", string(r.Bytes()[100:109]))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4196), st.Size())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(onDisk[100:109]))
}

func TestFileExhaustedAndClosed(t *testing.T) {
	r, err := OpenFile(filepath.Join(t.TempDir(), "heap.bin"), 4096)
	require.NoError(t, err)

	_, err = r.Grow(8192)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 0, r.Size())

	require.NoError(t, r.Close())
	_, err = r.Grow(8)
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, -1, r.FD())
}
