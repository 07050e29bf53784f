package betteria

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangziwei/betteria/internal/ccitt"
)

// writeTestTIFF produces a small binarized page the way the pipeline would.
func writeTestTIFF(t *testing.T, path string, width, height int) {
	t.Helper()
	pix := make([]byte, width*height)
	for i := range pix {
		if i%3 == 0 {
			pix[i] = 255
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, ccitt.EncodeTIFF(f, pix, width, height, width, 150))
	require.NoError(t, f.Close())
}

func TestPackEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.pdf")
	err := Pack(nil, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPages)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output file may be created")
}

func TestPackOutputIsDirectory(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page-1.tiff")
	writeTestTIFF(t, page, 32, 32)

	err := Pack([]string{page}, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputIsDirectory)
}

func TestPackMissingPage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.pdf")
	err := Pack([]string{"/does/not/exist.tiff"}, out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPackCreatesOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page-1.tiff")
	writeTestTIFF(t, page, 32, 32)

	out := filepath.Join(dir, "nested", "deeper", "out.pdf")
	require.NoError(t, Pack([]string{page}, out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestPackBuildsPDF(t *testing.T) {
	dir := t.TempDir()
	pages := []string{
		filepath.Join(dir, "page-1.tiff"),
		filepath.Join(dir, "page-2.tiff"),
	}
	for _, p := range pages {
		writeTestTIFF(t, p, 64, 48)
	}

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, Pack(pages, out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(raw), 4)
	assert.Equal(t, "%PDF", string(raw[:4]))
}
