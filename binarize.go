package betteria

import (
	"fmt"
	"math"
	"os"

	"github.com/bmharper/cimg/v2"

	"github.com/huangziwei/betteria/internal/ccitt"
)

// BinarizeOptions controls how a page image is reduced to black/white.
type BinarizeOptions struct {
	Threshold int  // global cutoff, 0-255
	Adaptive  bool // local Gaussian threshold instead of the global cutoff
	BlockSize int  // adaptive neighborhood size, odd, >= 3
	C         int  // constant subtracted from the local mean
	Invert    bool // invert pixels before thresholding
	DPI       int  // recorded in the output TIFF resolution tags
}

func (o BinarizeOptions) validate() error {
	if o.Threshold < 0 || o.Threshold > 255 {
		return fmt.Errorf("%w: threshold must be between 0 and 255, got %d", ErrInvalidConfig, o.Threshold)
	}
	if o.Adaptive && (o.BlockSize < 3 || o.BlockSize%2 == 0) {
		return fmt.Errorf("%w: block size must be an odd integer >= 3 when adaptive thresholding is enabled, got %d", ErrInvalidConfig, o.BlockSize)
	}
	return nil
}

// BinarizeFile reads a page image, binarizes it, and writes the result
// as a CCITT Group 4 TIFF. When d is non-nil the page is straightened
// before thresholding.
func BinarizeFile(path, out string, opts BinarizeOptions, d *Deskewer) error {
	if err := opts.validate(); err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	img, err := cimg.Decompress(raw)
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", path, err)
	}

	if d != nil {
		img, err = d.Straighten(img)
		if err != nil {
			return fmt.Errorf("deskewing %s: %w", path, err)
		}
	}

	gray := img.ToGray()
	bw := binarizeGray(gray.Pixels, gray.Width, gray.Height, opts)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	err = ccitt.EncodeTIFF(f, bw, gray.Width, gray.Height, gray.Width, opts.DPI)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}

// binarizeGray maps 8-bit grayscale pixels to strictly two values,
// 0 (black) and 255 (white). Dimensions are preserved.
func binarizeGray(gray []byte, width, height int, opts BinarizeOptions) []byte {
	src := gray
	if opts.Invert {
		src = make([]byte, len(gray))
		for i, v := range gray {
			src[i] = 255 - v
		}
	}

	out := make([]byte, width*height)
	if opts.Adaptive {
		local := gaussianBlur(src, width, height, opts.BlockSize)
		for i, v := range src {
			if float64(v) > local[i]-float64(opts.C) {
				out[i] = 255
			}
		}
		return out
	}

	cutoff := byte(opts.Threshold)
	for i, v := range src {
		if v > cutoff {
			out[i] = 255
		}
	}
	return out
}

// gaussianKernel builds a normalized 1D kernel of the given odd size,
// with the conventional sigma of 0.3*((size-1)*0.5 - 1) + 0.8.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	mid := size / 2
	sum := 0.0
	for i := range k {
		d := float64(i - mid)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianBlur computes a Gaussian-weighted local mean with a separable
// kernel. Borders replicate the edge pixel.
func gaussianBlur(src []byte, width, height, size int) []float64 {
	k := gaussianKernel(size)
	mid := size / 2

	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}

	// Horizontal pass.
	tmp := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			acc := 0.0
			for i, w := range k {
				acc += w * float64(row[clamp(x+i-mid, width)])
			}
			tmp[y*width+x] = acc
		}
	}

	// Vertical pass.
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			acc := 0.0
			for i, w := range k {
				acc += w * tmp[clamp(y+i-mid, height)*width+x]
			}
			out[y*width+x] = acc
		}
	}
	return out
}
