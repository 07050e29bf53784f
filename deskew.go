package betteria

import (
	"math"
	"sync"

	"github.com/bmharper/cimg/v2"
	"github.com/bmharper/docangle"
	"github.com/bmharper/textorient"
)

// DefaultMaxSkewDegrees bounds the skew search; beyond a few degrees a
// scan is misfed rather than skewed, and correcting it would crop content.
const DefaultMaxSkewDegrees = 2.6

// Deskewer straightens scanned page images before binarization: it
// estimates the skew angle from the white gaps between text lines,
// rotates the page back, and flips upside-down or sideways text upright.
type Deskewer struct {
	MaxAngle float64 // degrees, both directions

	orient *textorient.Orient
	mu     sync.Mutex // the orientation model is not safe for concurrent use
}

func NewDeskewer() (*Deskewer, error) {
	orient, err := textorient.NewOrient()
	if err != nil {
		return nil, err
	}
	return &Deskewer{MaxAngle: DefaultMaxSkewDegrees, orient: orient}, nil
}

func (d *Deskewer) Straighten(img *cimg.Image) (*cimg.Image, error) {
	fixed := img
	if angle := d.pageAngle(img); angle != 0 {
		fixed = rotateImage(img, -angle)
	}

	d.mu.Lock()
	upright, err := d.orient.MakeUpright(fixed)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return upright, nil
}

func (d *Deskewer) pageAngle(img *cimg.Image) float64 {
	gray := img.ToGray()
	params := docangle.NewWhiteLinesParams()
	params.MinDeltaDegrees = -d.MaxAngle
	params.MaxDeltaDegrees = d.MaxAngle
	_, angle := docangle.GetAngleWhiteLines(&docangle.Image{
		Pixels: gray.Pixels,
		Width:  gray.Width,
		Height: gray.Height,
	}, params)
	return angle
}

func rotateImage(img *cimg.Image, angle float64) *cimg.Image {
	const cropLimitDegrees = 5
	var newWidth, newHeight int
	switch {
	case math.Abs(angle) <= cropLimitDegrees:
		// Small angles just clip; the rotated scan usually carries
		// implicit padding anyway.
		newWidth, newHeight = img.Width, img.Height
	case math.Abs(angle-90) <= cropLimitDegrees || math.Abs(angle+90) <= cropLimitDegrees:
		// Landscape version of the same shortcut.
		newWidth, newHeight = img.Height, img.Width
	default:
		cosA := math.Abs(math.Cos(angle * math.Pi / 180))
		sinA := math.Abs(math.Sin(angle * math.Pi / 180))
		newWidth = int(float64(img.Width)*cosA + float64(img.Height)*sinA)
		newHeight = int(float64(img.Width)*sinA + float64(img.Height)*cosA)
	}

	fixed := cimg.NewImage(newWidth, newHeight, img.Format)
	cimg.Rotate(img, fixed, angle*math.Pi/180, nil)
	return fixed
}
