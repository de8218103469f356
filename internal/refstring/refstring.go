// Package refstring implements the reference-string recorder and replayer
// described by spec.md §3/§4.4/§6: an append-only capture of the sequence
// of distinct successive virtual-page numbers touched by a process, and an
// immutable replay vector consumed by the OPT replacement policy.
//
// Grounded on addrspace.cc's lastVirtPage/fdRefStr/fpRefStr fields and the
// updatePage/updatePageOpt methods (_examples/original_source/code/lab7).
// The open question spec.md §9 flags — host order vs portable order for
// the binary file — is resolved here: little-endian, always.
package refstring

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/utnfrba-so/go-nachos-vm/internal/hal"
	"github.com/utnfrba-so/go-nachos-vm/log"
)

var logger = log.For("refstring")

// BinaryName and TextName return the on-disk names spec.md §6 specifies
// for a given address-space ID.
func BinaryName(spaceID int) string { return fmt.Sprintf("REFSTR%d", spaceID) }
func TextName(spaceID int) string   { return fmt.Sprintf("REFSTR%d.TXT", spaceID) }

// Recorder appends distinct-successive virtual-page references to a
// binary file (16-bit little-endian) and a parallel text file (one decimal
// per line), coalescing repeats of the immediately prior page.
type Recorder struct {
	bin, text       hal.File
	binOff, textOff int64
	lastVirtPage    int
	hasLast         bool
}

// NewRecorder opens (truncating) the binary and text reference-string
// files for spaceID.
func NewRecorder(fs hal.FileSystem, spaceID int) (*Recorder, error) {
	binName, textName := BinaryName(spaceID), TextName(spaceID)

	if err := fs.Create(binName, 0); err != nil {
		return nil, fmt.Errorf("refstring: creating %s: %w", binName, err)
	}
	bin, err := fs.Open(binName)
	if err != nil {
		return nil, fmt.Errorf("refstring: opening %s: %w", binName, err)
	}

	if err := fs.Create(textName, 0); err != nil {
		bin.Close()
		return nil, fmt.Errorf("refstring: creating %s: %w", textName, err)
	}
	text, err := fs.Open(textName)
	if err != nil {
		bin.Close()
		return nil, fmt.Errorf("refstring: opening %s: %w", textName, err)
	}

	return &Recorder{bin: bin, text: text}, nil
}

// Record appends vpn if it differs from the last recorded page. It is a
// no-op on a repeat access, per spec.md §3's coalescing rule.
func (r *Recorder) Record(vpn int) {
	if r.hasLast && vpn == r.lastVirtPage {
		return
	}
	r.lastVirtPage = vpn
	r.hasLast = true

	if vpn > math.MaxInt16 {
		logger.WithField("vpn", vpn).Warn("page number exceeds SHRT_MAX, skipping binary record")
	} else {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(vpn))
		if _, err := r.bin.WriteAt(buf[:], r.binOff); err != nil {
			logger.WithError(err).Error("writing binary reference string")
		} else {
			r.binOff += 2
		}
	}

	line := fmt.Sprintf("%d\n", vpn)
	if _, err := r.text.WriteAt([]byte(line), r.textOff); err != nil {
		logger.WithError(err).Error("writing text reference string")
	} else {
		r.textOff += int64(len(line))
	}
}

// Close closes both underlying files.
func (r *Recorder) Close() error {
	errBin := r.bin.Close()
	errText := r.text.Close()
	if errBin != nil {
		return errBin
	}
	return errText
}

// Replayer is the immutable reference vector the OPT policy consumes
// left-to-right, loaded from a previously recorded REFSTR file.
type Replayer struct {
	entries []uint16
	refIdx  int
}

// Load reads the entire REFSTR{spaceID} file into memory as 16-bit
// entries. The file length must be even; an odd length is fatal, per
// spec.md §6.
func Load(fs hal.FileSystem, spaceID int) (*Replayer, error) {
	name := BinaryName(spaceID)
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("refstring: opening %s: %w", name, err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return nil, fmt.Errorf("refstring: stat %s: %w", name, err)
	}
	if size%2 != 0 {
		return nil, fmt.Errorf("refstring: %s has odd length %d", name, size)
	}

	raw := make([]byte, size)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("refstring: reading %s: %w", name, err)
	}

	entries := make([]uint16, size/2)
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
	}

	logger.WithFields(map[string]interface{}{"file": name, "items": len(entries)}).Info("loaded optimal reference string")
	return &Replayer{entries: entries}, nil
}

// Len reports the number of entries in the loaded reference string.
func (r *Replayer) Len() int { return len(r.entries) }

// At returns the reference string entry at the current cursor.
func (r *Replayer) At() int { return int(r.entries[r.refIdx]) }

// Index returns the current cursor position.
func (r *Replayer) Index() int { return r.refIdx }

// NextOccurrence returns, for vpn, the smallest index >= from at which vpn
// occurs in the reference string, or -1 if vpn never occurs again. Used by
// the OPT policy's victim search (spec.md §4.3).
func (r *Replayer) NextOccurrence(vpn, from int) int {
	for i := from; i < len(r.entries); i++ {
		if int(r.entries[i]) == vpn {
			return i
		}
	}
	return -1
}

// Advance implements the OPT update rule from spec.md §4.3/§9: a duplicate
// within the same reference must not advance the cursor; a genuinely new
// vpn must match the next string entry exactly, or the replay has
// diverged. ok is false when the string is exhausted or mismatched —
// callers treat that as a FatalInvariant per spec.md §7.
func (r *Replayer) Advance(vpn int) (ok bool) {
	if len(r.entries) == 0 {
		logger.WithField("vpn", vpn).Error("optimal reference string exhausted")
		return false
	}
	if r.entries[r.refIdx] == uint16(vpn) {
		return true
	}
	if r.refIdx+1 >= len(r.entries) {
		logger.WithField("vpn", vpn).Error("optimal reference string exhausted")
		return false
	}
	r.refIdx++
	if r.entries[r.refIdx] != uint16(vpn) {
		logger.WithFields(map[string]interface{}{
			"index": r.refIdx, "expected": r.entries[r.refIdx], "got": vpn,
		}).Error("optimal reference string mismatch")
		return false
	}
	return true
}
