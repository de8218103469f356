// Package vm ties the frame allocator, the replacement policies, the NOFF
// loader and the reference-string recorder/replayer together into the
// per-process address space lifecycle of spec.md §3/§4.4/§4.5.
//
// A Kernel value bundles the collaborators the original's AddrSpace reached
// for as process-wide globals (currentThread, fileSystem, synchDisk,
// machine) — per spec.md §9's redesign note, the core here takes them as an
// explicit dependency instead, threaded through NewAddressSpace and every
// fault-handling call.
//
// Grounded on addrspace.h/addrspace.cc
// (_examples/original_source/code/lab7) for the domain logic, and on the
// teacher's cmd/memoria/memoria_init.go for the shape of a config-built,
// long-lived kernel-side object owning the frame table and physical memory.
package vm

import (
	"fmt"

	"github.com/Workiva/go-datastructures/bitarray"

	"github.com/utnfrba-so/go-nachos-vm/internal/frame"
	"github.com/utnfrba-so/go-nachos-vm/internal/hal"
	"github.com/utnfrba-so/go-nachos-vm/log"
)

var logger = log.For("vm")

// Config holds the kernel-wide constants of spec.md §6: PageSize,
// NumPhysPages, MaxFramesPerProc and UserStackSize are all compile-time
// (or config-file) constants shared by every address space.
type Config struct {
	PageSize         int
	NumPhysPages     int
	MaxFramesPerProc int
	UserStackSize    int
}

// Kernel bundles a Config with the collaborators and kernel-wide shared
// state (physical memory, the frame allocator, the PID occupancy bitmap)
// every AddressSpace draws on. One Kernel value is constructed at startup
// and shared by every AddressSpace for the run's lifetime.
type Kernel struct {
	Config

	FS        hal.FileSystem
	Scheduler hal.Scheduler
	Interrupt hal.InterruptController
	MMU       hal.MMU

	Frames *frame.Allocator
	// Memory is the kernel's simulated physical RAM: NumPhysPages frames of
	// PageSize bytes each, the same "mainMemory" a real Nachos machine
	// keeps, addressed here by frame index rather than by raw byte offset.
	Memory []byte

	pidBits bitarray.BitArray
	pidCS   *hal.CriticalSection
}

// NewKernel constructs a Kernel from cfg and its collaborators. irq may be
// nil for tests that don't model interrupt masking.
func NewKernel(cfg Config, fs hal.FileSystem, sched hal.Scheduler, irq hal.InterruptController, mmu hal.MMU) *Kernel {
	k := &Kernel{
		Config:    cfg,
		FS:        fs,
		Scheduler: sched,
		Interrupt: irq,
		MMU:       mmu,
		Frames:    frame.New(cfg.NumPhysPages),
		Memory:    make([]byte, cfg.NumPhysPages*cfg.PageSize),
		pidBits:   bitarray.NewBitArray(uint64(cfg.NumPhysPages)),
	}
	k.pidCS = hal.NewCriticalSection(irq)
	logger.WithFields(map[string]interface{}{
		"page_size":    cfg.PageSize,
		"phys_pages":   cfg.NumPhysPages,
		"max_frames":   cfg.MaxFramesPerProc,
	}).Info("kernel initialized")
	return k
}

// FrameBytes returns the PageSize-byte slice of Memory backing physical
// frame idx, a view rather than a copy.
func (k *Kernel) FrameBytes(idx int) []byte {
	start := idx * k.PageSize
	return k.Memory[start : start+k.PageSize]
}

// allocateSpaceID claims an unused address-space id in [0, NumPhysPages),
// generalized from the original's ProgMap. The bound is somewhat
// arbitrary (there is no inherent link between the id space and the
// number of physical pages) but matches the original exactly, per
// addrspace.cc's ProgMap sizing.
func (k *Kernel) allocateSpaceID() (int, error) {
	release := k.pidCS.Enter()
	defer release()

	for i := 0; i < k.NumPhysPages; i++ {
		set, err := k.pidBits.GetBit(uint64(i))
		if err != nil {
			return -1, fmt.Errorf("vm: reading pid bitmap: %w", err)
		}
		if !set {
			if err := k.pidBits.SetBit(uint64(i)); err != nil {
				return -1, fmt.Errorf("vm: setting pid bitmap: %w", err)
			}
			return i, nil
		}
	}
	return -1, &ConstructionError{Reason: "no free address-space ids"}
}

func (k *Kernel) releaseSpaceID(id int) {
	release := k.pidCS.Enter()
	defer release()
	_ = k.pidBits.ClearBit(uint64(id))
}
