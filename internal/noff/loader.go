package noff

import (
	"fmt"

	"github.com/utnfrba-so/go-nachos-vm/internal/hal"
	"github.com/utnfrba-so/go-nachos-vm/log"
)

var logger = log.For("loader")

// LoadExecutable reads and decodes the NOFF header at the start of
// executable, per spec.md §4.2.
func LoadExecutable(executable hal.File) (Header, error) {
	raw := make([]byte, HeaderSize)
	if _, err := executable.ReadAt(raw, 0); err != nil {
		return Header{}, fmt.Errorf("noff: reading header: %w", err)
	}
	header, err := Decode(raw)
	if err != nil {
		return Header{}, err
	}
	return header, nil
}

// CopyIntoSwap zero-fills swap to numPages*pageSize bytes and then copies
// the code and initialized-data segments of header from executable into
// swap at their virtual addresses. Segments of size 0 are skipped;
// uninitialized data needs no copy since the zero-fill already satisfies
// it. Grounded on the AddrSpace constructor's swap-file setup in
// addrspace.cc.
func CopyIntoSwap(executable, swap hal.File, header Header, numPages, pageSize int) error {
	zero := make([]byte, pageSize)
	for p := 0; p < numPages; p++ {
		if _, err := swap.WriteAt(zero, int64(p*pageSize)); err != nil {
			return fmt.Errorf("noff: zero-filling swap page %d: %w", p, err)
		}
	}

	if err := copySegment(executable, swap, header.Code); err != nil {
		return fmt.Errorf("noff: copying code segment: %w", err)
	}
	if err := copySegment(executable, swap, header.InitData); err != nil {
		return fmt.Errorf("noff: copying initialized-data segment: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"code_size":  header.Code.Size,
		"data_size":  header.InitData.Size,
		"bss_size":   header.UninitData.Size,
	}).Debug("copied executable segments into swap")
	return nil
}

func copySegment(executable, swap hal.File, seg Segment) error {
	if seg.Size == 0 {
		return nil
	}
	buf := make([]byte, seg.Size)
	if _, err := executable.ReadAt(buf, int64(seg.InFileAddr)); err != nil {
		return fmt.Errorf("reading %d bytes at file offset %d: %w", seg.Size, seg.InFileAddr, err)
	}
	if _, err := swap.WriteAt(buf, int64(seg.VirtualAddr)); err != nil {
		return fmt.Errorf("writing %d bytes at virtual address %d: %w", seg.Size, seg.VirtualAddr, err)
	}
	return nil
}
