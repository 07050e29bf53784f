package ccitt

import (
	"bytes"
	"encoding/binary"
	"io"
)

// TIFF tag IDs used below, in the ascending order required for an IFD.
const (
	tagImageWidth     = 256
	tagImageLength    = 257
	tagBitsPerSample  = 258
	tagCompression    = 259
	tagPhotometric    = 262
	tagStripOffsets   = 273
	tagSamplesPerPix  = 277
	tagRowsPerStrip   = 278
	tagStripByteCount = 279
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296
)

const (
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

// EncodeTIFF writes pix as a single-strip, 1 bit per sample, little-endian
// TIFF using Group 4 compression and PhotometricInterpretation=WhiteIsZero.
// dpi is recorded in the resolution tags. Pixel values below 128 are black.
func EncodeTIFF(w io.Writer, pix []byte, width, height, stride, dpi int) error {
	strip := &bytes.Buffer{}
	if err := EncodeG4(strip, pix, width, height, stride); err != nil {
		return err
	}
	if dpi <= 0 {
		dpi = 72
	}

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}

	const numEntries = 12
	// header(8) + entry count(2) + entries(12 each) + next-IFD offset(4)
	ifdSize := uint32(2 + numEntries*12 + 4)
	rationalOff := 8 + ifdSize
	stripOff := rationalOff + 16

	entries := [numEntries]entry{
		{tagImageWidth, typeLong, 1, uint32(width)},
		{tagImageLength, typeLong, 1, uint32(height)},
		{tagBitsPerSample, typeShort, 1, 1},
		{tagCompression, typeShort, 1, 4}, // CCITT Group 4
		{tagPhotometric, typeShort, 1, 0}, // WhiteIsZero
		{tagStripOffsets, typeLong, 1, stripOff},
		{tagSamplesPerPix, typeShort, 1, 1},
		{tagRowsPerStrip, typeLong, 1, uint32(height)},
		{tagStripByteCount, typeLong, 1, uint32(strip.Len())},
		{tagXResolution, typeRational, 1, rationalOff},
		{tagYResolution, typeRational, 1, rationalOff + 8},
		{tagResolutionUnit, typeShort, 1, 2}, // pixels per inch
	}

	out := bufWriter{w: w}
	out.write([]byte{'I', 'I', 42, 0})
	out.u32(8) // IFD follows the header immediately
	out.u16(numEntries)
	for _, en := range entries {
		out.u16(en.tag)
		out.u16(en.typ)
		out.u32(en.count)
		if en.typ == typeShort {
			// Value is left-justified within the 4-byte field.
			out.u16(uint16(en.value))
			out.u16(0)
		} else {
			out.u32(en.value)
		}
	}
	out.u32(0) // no next IFD
	out.u32(uint32(dpi))
	out.u32(1)
	out.u32(uint32(dpi))
	out.u32(1)
	out.write(strip.Bytes())
	return out.err
}

// bufWriter accumulates the first write error, keeping the happy path flat.
type bufWriter struct {
	w   io.Writer
	err error
}

func (b *bufWriter) write(p []byte) {
	if b.err == nil {
		_, b.err = b.w.Write(p)
	}
}

func (b *bufWriter) u16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.write(buf[:])
}

func (b *bufWriter) u32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.write(buf[:])
}
