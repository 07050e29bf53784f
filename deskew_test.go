package betteria

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateImageGeometry(t *testing.T) {
	src := cimg.NewImage(100, 50, cimg.PixelFormatRGB)

	// Small corrections keep the original frame and clip the corners.
	for _, angle := range []float64{0, 2, -4.5} {
		fixed := rotateImage(src, angle)
		assert.Equal(t, 100, fixed.Width, "angle %v", angle)
		assert.Equal(t, 50, fixed.Height, "angle %v", angle)
	}

	// Near a quarter turn the frame swaps sides.
	for _, angle := range []float64{88, 90, -91.5} {
		fixed := rotateImage(src, angle)
		assert.Equal(t, 50, fixed.Width, "angle %v", angle)
		assert.Equal(t, 100, fixed.Height, "angle %v", angle)
	}

	// In between the frame grows to the rotated bounding box.
	fixed := rotateImage(src, 45)
	assert.Equal(t, 106, fixed.Width)
	assert.Equal(t, 106, fixed.Height)
	fixed = rotateImage(src, 30)
	wantW := 100*0.8660254 + 50*0.5
	wantH := 100*0.5 + 50*0.8660254
	assert.Equal(t, int(wantW), fixed.Width)
	assert.Equal(t, int(wantH), fixed.Height)
}

func TestRotateImageKeepsFormat(t *testing.T) {
	src := cimg.NewImage(40, 40, cimg.PixelFormatRGB)
	assert.Equal(t, src.Format, rotateImage(src, 45).Format)
}

func TestRunDeskewerLoadFailure(t *testing.T) {
	input := writeInputPDF(t)
	opts := DefaultOptions(input)
	opts.Output = filepath.Join(t.TempDir(), "out.pdf")
	opts.Deskew = true
	opts.Jobs = 1

	p := newTestPipeline(t, opts, pngBackend{pages: 2}, 2)
	p.newDeskewer = func() (*Deskewer, error) {
		return nil, errors.New("orientation model unavailable")
	}

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading deskew model")
	assert.Contains(t, err.Error(), "orientation model unavailable")

	_, statErr := os.Stat(opts.Output)
	assert.True(t, os.IsNotExist(statErr), "failed run must not produce an output document")
}

func TestRunWithoutDeskewSkipsModel(t *testing.T) {
	input := writeInputPDF(t)
	opts := DefaultOptions(input)
	opts.Output = filepath.Join(t.TempDir(), "out.pdf")
	opts.Jobs = 1

	p := newTestPipeline(t, opts, pngBackend{pages: 1}, 1)
	p.newDeskewer = func() (*Deskewer, error) {
		t.Fatal("deskewer must not be constructed when deskewing is off")
		return nil, nil
	}
	require.NoError(t, p.Run(context.Background()))
}
