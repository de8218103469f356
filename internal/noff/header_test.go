package noff

import (
	"encoding/binary"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeHeader(t *testing.T, h Header, swapped bool) []byte {
	t.Helper()
	words := [10]uint32{
		h.Magic,
		uint32(h.Code.Size), uint32(h.Code.VirtualAddr), uint32(h.Code.InFileAddr),
		uint32(h.InitData.Size), uint32(h.InitData.VirtualAddr), uint32(h.InitData.InFileAddr),
		uint32(h.UninitData.Size), uint32(h.UninitData.VirtualAddr), uint32(h.UninitData.InFileAddr),
	}
	if swapped {
		for i := range words {
			words[i] = bits.ReverseBytes32(words[i])
		}
	}
	buf := make([]byte, HeaderSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	return buf
}

func TestDecodeNativeOrder(t *testing.T) {
	want := Header{
		Magic: Magic,
		Code:  Segment{Size: 100, VirtualAddr: 0, InFileAddr: 40},
	}
	raw := encodeHeader(t, want, false)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, want.Code, got.Code)
}

func TestDecodeByteSwapped(t *testing.T) {
	want := Header{
		Magic: Magic,
		Code:  Segment{Size: 200, VirtualAddr: 0, InFileAddr: 40},
	}
	raw := encodeHeader(t, want, true)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, want.Code, got.Code, "a byte-swapped header must decode to the same logical segment")
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	raw := encodeHeader(t, Header{Magic: 0xDEADBEEF}, false)
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	assert.Error(t, err)
}

func TestMemSize(t *testing.T) {
	h := Header{
		Code:       Segment{Size: 100},
		InitData:   Segment{Size: 50},
		UninitData: Segment{Size: 20},
	}
	assert.Equal(t, 100+50+20+1024, h.MemSize(1024))
}
