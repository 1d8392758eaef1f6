package dataset

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapfields/lib/rockstar"
)

func writeChunk(t *testing.T, dir string, chunk int, numHalos int64) string {
	hd := &rockstar.Header{
		Magic:    rockstar.Magic,
		Snap:     15,
		Chunk:    int64(chunk),
		Scale:    0.5,
		OmegaM:   0.3,
		OmegaL:   0.7,
		H0:       0.7,
		NumHalos: numHalos,
	}

	path := filepath.Join(dir, fmt.Sprintf("halos_15.%d.bin", chunk))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, binary.Write(f, binary.LittleEndian, hd))
	_, err = f.Write(make([]byte, numHalos*232))
	require.NoError(t, err)

	return path
}

func TestOpenHalos(t *testing.T) {
	dir := t.TempDir()
	first := writeChunk(t, dir, 0, 4)
	writeChunk(t, dir, 1, 2)

	cat, err := OpenHalos(first)
	require.NoError(t, err)

	require.Len(t, cat.Files, 2)
	assert.Equal(t, int64(4), cat.Files[0].Header.NumHalos)
	assert.Equal(t, int64(2), cat.Files[1].Header.NumHalos)
	assert.Equal(t, int64(232), cat.Files[0].RecordSize)

	assert.InDelta(t, 1.0, cat.CurrentRedshift, 1e-6)

	// a = 0.5 in this cosmology is a bit under 6 Gyr after the Big
	// Bang.
	const gyr = 3.15576e16
	assert.Greater(t, cat.CurrentTime, 5*gyr)
	assert.Less(t, cat.CurrentTime, 7*gyr)
}

func TestOpenHalosNonContiguousChunks(t *testing.T) {
	// Chunk 1 is missing, e.g. lost or written by a crashed writer.
	// The surviving chunks must still open, with no error for files
	// that never existed.
	dir := t.TempDir()
	first := writeChunk(t, dir, 0, 4)
	writeChunk(t, dir, 2, 3)

	cat, err := OpenHalos(first)
	require.NoError(t, err)

	require.Len(t, cat.Files, 2)
	assert.Equal(t, int64(0), cat.Files[0].Header.Chunk)
	assert.Equal(t, int64(2), cat.Files[1].Header.Chunk)
}

func TestOpenHalosRejectsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot_023.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 512), 0666))

	_, err := OpenHalos(path)
	require.Error(t, err)
}
