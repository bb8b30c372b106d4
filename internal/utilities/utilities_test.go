package utilities

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameArchive_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "frames.log")
	a, err := NewFrameArchive(path)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, a.Write("356307042441013", []byte{0x07, 0x00, 0x00}))
	require.NoError(t, a.Write("356307042441013", []byte{0xFF}))
	require.NoError(t, a.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"2024-05-01T12:00:00Z 356307042441013 070000\n"+
			"2024-05-01T12:00:00Z 356307042441013 ff\n",
		string(b))
}
