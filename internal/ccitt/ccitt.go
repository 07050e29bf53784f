// Package ccitt encodes bi-level images using ITU-T T.6 (Group 4, MMR)
// compression, the scheme used by fax machines and by TIFF compression
// type 4. Only encoding is provided; decoding is left to the TIFF
// libraries that read the output.
package ccitt

import (
	"bufio"
	"fmt"
	"io"
)

const (
	white byte = 0
	black byte = 1
)

// EncodeG4 compresses an 8-bit grayscale image as a Group 4 bitstream,
// terminated by EOFB and padded with zero bits to a byte boundary.
// Pixel values below 128 are treated as black. stride is the distance in
// bytes between the starts of consecutive rows in pix.
func EncodeG4(w io.Writer, pix []byte, width, height, stride int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("ccitt: invalid dimensions %dx%d", width, height)
	}
	if stride < width {
		return fmt.Errorf("ccitt: stride %d smaller than width %d", stride, width)
	}
	if len(pix) < (height-1)*stride+width {
		return fmt.Errorf("ccitt: pixel buffer too short for %dx%d stride %d", width, height, stride)
	}

	e := &encoder{
		w:     bufio.NewWriter(w),
		width: width,
		ref:   make([]byte, width), // all white
		cur:   make([]byte, width),
	}

	for y := 0; y < height; y++ {
		row := pix[y*stride : y*stride+width]
		for x, v := range row {
			if v < 128 {
				e.cur[x] = black
			} else {
				e.cur[x] = white
			}
		}
		if err := e.encodeRow(); err != nil {
			return err
		}
		e.ref, e.cur = e.cur, e.ref
	}

	// EOFB: two EOL codes back to back.
	if err := e.writeBits(code{0b000000000001_000000000001, 24}); err != nil {
		return err
	}
	return e.flush()
}

type encoder struct {
	w     *bufio.Writer
	width int
	ref   []byte // previous row, one byte per pixel
	cur   []byte // current row

	acc     byte
	accBits int
}

// pixel returns the colour at x, with everything outside the row white.
func pixel(row []byte, x int) byte {
	if x < 0 || x >= len(row) {
		return white
	}
	return row[x]
}

// findChange returns the position of the first pixel at or after start
// whose colour differs from c, or the row width if there is none.
func (e *encoder) findChange(row []byte, start int, c byte) int {
	for x := start; x < e.width; x++ {
		if row[x] != c {
			return x
		}
	}
	return e.width
}

// encodeRow emits the vertical/horizontal/pass mode codes for one row,
// following the coding procedure of ITU-T T.6 §4.2.1.
func (e *encoder) encodeRow() error {
	a0 := 0
	a1 := 0
	if e.cur[0] == white {
		a1 = e.findChange(e.cur, 0, white)
	}
	b1 := 0
	if e.ref[0] == white {
		b1 = e.findChange(e.ref, 0, white)
	}

	for {
		b2 := e.findChange(e.ref, b1, pixel(e.ref, b1))
		if b2 >= a1 {
			if d := b1 - a1; d >= -3 && d <= 3 {
				if err := e.writeBits(vertCodes[d+3]); err != nil {
					return err
				}
				a0 = a1
			} else {
				a2 := e.findChange(e.cur, a1, pixel(e.cur, a1))
				if err := e.writeBits(codeHoriz); err != nil {
					return err
				}
				// At the start of a row a0 stands for an imaginary
				// white pixel, so the first run is white even when
				// the row begins with black.
				first := pixel(e.cur, a0)
				if a0 == 0 && a1 == 0 {
					first = white
				}
				if err := e.writeRun(a1-a0, first); err != nil {
					return err
				}
				if err := e.writeRun(a2-a1, 1-first); err != nil {
					return err
				}
				a0 = a2
			}
		} else {
			if err := e.writeBits(codePass); err != nil {
				return err
			}
			a0 = b2
		}
		if a0 >= e.width {
			return nil
		}
		c := pixel(e.cur, a0)
		a1 = e.findChange(e.cur, a0, c)
		b1 = e.findChange(e.ref, a0, 1-c)
		b1 = e.findChange(e.ref, b1, c)
	}
}

// writeRun emits the makeup and terminating codes for a run of n pixels.
func (e *encoder) writeRun(n int, c byte) error {
	term, makeup := &whiteTerm, &whiteMakeup
	if c == black {
		term, makeup = &blackTerm, &blackMakeup
	}
	for n >= 2624 {
		if err := e.writeBits(extMakeup[len(extMakeup)-1]); err != nil {
			return err
		}
		n -= 2560
	}
	if n >= 64 {
		m := n / 64 // 1..40
		var mc code
		if m <= 27 {
			mc = makeup[m-1]
		} else {
			mc = extMakeup[m-28]
		}
		if err := e.writeBits(mc); err != nil {
			return err
		}
		n -= m * 64
	}
	return e.writeBits(term[n])
}

func (e *encoder) writeBits(c code) error {
	for bit := uint32(1) << (c.width - 1); bit > 0; bit >>= 1 {
		if c.bits&bit != 0 {
			e.acc |= 1 << (7 - e.accBits)
		}
		e.accBits++
		if e.accBits == 8 {
			if err := e.w.WriteByte(e.acc); err != nil {
				return err
			}
			e.acc, e.accBits = 0, 0
		}
	}
	return nil
}

func (e *encoder) flush() error {
	if e.accBits > 0 {
		if err := e.w.WriteByte(e.acc); err != nil {
			return err
		}
		e.acc, e.accBits = 0, 0
	}
	return e.w.Flush()
}
