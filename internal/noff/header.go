// Package noff decodes the NOFF executable header (spec.md §6) and copies
// its code/initialized-data segments into a process's swap file.
//
// Grounded on addrspace.cc's SwapHeader/AddrSpace constructor
// (_examples/original_source/code/lab7/addrspace.cc).
package noff

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Magic is NOFFMAGIC, the word that must appear (possibly byte-swapped)
// at the start of a valid NOFF header.
const Magic uint32 = 0xBADFAD

// HeaderSize is the fixed on-disk size of a NOFF header: one magic word
// plus three segments of three words each.
const HeaderSize = 4 * 10

// Segment describes one of the three program segments in a NOFF file.
type Segment struct {
	Size        int32
	VirtualAddr int32
	InFileAddr  int32
}

// Header is the decoded, endian-normalized NOFF header.
type Header struct {
	Magic      uint32
	Code       Segment
	InitData   Segment
	UninitData Segment
}

func swapWord(w uint32) uint32 {
	return bits.ReverseBytes32(w)
}

// Decode parses a 40-byte NOFF header out of raw. If the magic word
// doesn't match but its byte-swapped form does, every word in the header
// is swapped before the segments are extracted — an explicit decode step,
// never a raw reinterpretation of the bytes, per spec.md §9's redesign
// note on endian fix-up.
func Decode(raw []byte) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, fmt.Errorf("noff: header truncated: got %d bytes, need %d", len(raw), HeaderSize)
	}

	var words [10]uint32
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}

	if words[0] != Magic {
		if swapWord(words[0]) != Magic {
			return Header{}, fmt.Errorf("noff: bad magic: got 0x%08X, want 0x%08X (or its byte-swap)", words[0], Magic)
		}
		for i := range words {
			words[i] = swapWord(words[i])
		}
	}

	return Header{
		Magic:      words[0],
		Code:       Segment{int32(words[1]), int32(words[2]), int32(words[3])},
		InitData:   Segment{int32(words[4]), int32(words[5]), int32(words[6])},
		UninitData: Segment{int32(words[7]), int32(words[8]), int32(words[9])},
	}, nil
}

// MemSize returns the total bytes this header's segments plus a user
// stack of stackSize bytes require.
func (h Header) MemSize(stackSize int) int {
	return int(h.Code.Size) + int(h.InitData.Size) + int(h.UninitData.Size) + stackSize
}
