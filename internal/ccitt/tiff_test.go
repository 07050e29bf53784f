package ccitt

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTIFFHeader(t *testing.T) {
	pix := grid(16, 4, nil)
	var buf bytes.Buffer
	require.NoError(t, EncodeTIFF(&buf, pix, 16, 4, 16, 300))

	raw := buf.Bytes()
	require.Greater(t, len(raw), 8)
	assert.Equal(t, []byte{'I', 'I', 42, 0}, raw[:4])
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(raw[4:8]))

	numEntries := int(binary.LittleEndian.Uint16(raw[8:10]))
	require.Equal(t, 12, numEntries)

	tags := map[uint16]uint32{}
	for i := 0; i < numEntries; i++ {
		off := 10 + i*12
		tag := binary.LittleEndian.Uint16(raw[off : off+2])
		typ := binary.LittleEndian.Uint16(raw[off+2 : off+4])
		var val uint32
		if typ == typeShort {
			val = uint32(binary.LittleEndian.Uint16(raw[off+8 : off+10]))
		} else {
			val = binary.LittleEndian.Uint32(raw[off+8 : off+12])
		}
		tags[tag] = val
	}

	assert.Equal(t, uint32(16), tags[tagImageWidth])
	assert.Equal(t, uint32(4), tags[tagImageLength])
	assert.Equal(t, uint32(1), tags[tagBitsPerSample])
	assert.Equal(t, uint32(4), tags[tagCompression])
	assert.Equal(t, uint32(0), tags[tagPhotometric])
	assert.Equal(t, uint32(2), tags[tagResolutionUnit])

	// The strip must sit where the IFD says it does, and fill the file.
	stripOff := tags[tagStripOffsets]
	stripLen := tags[tagStripByteCount]
	assert.Equal(t, uint32(len(raw)), stripOff+stripLen)

	// X resolution rational holds the DPI.
	resOff := tags[tagXResolution]
	assert.Equal(t, uint32(300), binary.LittleEndian.Uint32(raw[resOff:resOff+4]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[resOff+4:resOff+8]))
}

func TestEncodeTIFFDefaultsDPI(t *testing.T) {
	pix := grid(8, 2, nil)
	var buf bytes.Buffer
	require.NoError(t, EncodeTIFF(&buf, pix, 8, 2, 8, 0))
	// 72 dpi fallback; the rational values live right after the IFD.
	raw := buf.Bytes()
	resOff := uint32(8 + 2 + 12*12 + 4)
	assert.Equal(t, uint32(72), binary.LittleEndian.Uint32(raw[resOff:resOff+4]))
}
