package vm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/utnfrba-so/go-nachos-vm/internal/hal"
	"github.com/utnfrba-so/go-nachos-vm/internal/noff"
	"github.com/utnfrba-so/go-nachos-vm/internal/refstring"
	"github.com/utnfrba-so/go-nachos-vm/internal/replace"
)

// TranslationEntry is one entry of a process's page table: a virtual page
// and, while resident, the physical frame it's mapped to plus the
// use/dirty/valid bits the MMU and the replacement policies consult.
// Grounded on Nachos's TranslationEntry (addrspace.h).
type TranslationEntry struct {
	VirtualPage  int
	PhysicalPage int // -1 while not resident
	Valid        bool
	Use          bool
	Dirty        bool
	ReadOnly     bool
}

// Options configures one AddressSpace's construction: which replacement
// policy it runs, whether it records its own reference string instead
// (mutually exclusive with running OPT, which consumes one), and the seed
// for the Random policy.
type Options struct {
	Policy          replace.Kind
	RecordRefString bool
	RandomSeed      int64
}

// AddressSpace is a process's virtual address space: its page table, the
// swap file backing every page, the replacement policy managing its frame
// budget, and — depending on Options — a reference-string recorder or
// player. Grounded on addrspace.h's AddrSpace class and addrspace.cc's
// constructor through Print().
type AddressSpace struct {
	kernel  *Kernel
	spaceID int

	mu        sync.Mutex
	pageTable []TranslationEntry
	numPages  int

	swapName string
	swapFile hal.File

	policyKind replace.Kind
	policy     replace.Policy
	recorder   *refstring.Recorder

	numPageFaults int
	numPageWrites int
}

// NewAddressSpace loads executableName through kernel's file system and
// builds the address space described by spec.md §4.5: NOFF header decode,
// page-table sizing, swap-file creation and executable load, and
// replacement-policy/reference-string setup. On any failure it releases
// whatever it already allocated and returns a *ConstructionError.
func NewAddressSpace(kernel *Kernel, executableName string, opts Options) (*AddressSpace, error) {
	spaceID, err := kernel.allocateSpaceID()
	if err != nil {
		return nil, err
	}

	as := &AddressSpace{
		kernel:     kernel,
		spaceID:    spaceID,
		policyKind: opts.Policy,
	}

	executable, err := kernel.FS.Open(executableName)
	if err != nil {
		kernel.releaseSpaceID(spaceID)
		return nil, &ConstructionError{Reason: fmt.Sprintf("opening executable %q", executableName), Err: err}
	}
	defer executable.Close()

	header, err := noff.LoadExecutable(executable)
	if err != nil {
		kernel.releaseSpaceID(spaceID)
		return nil, &ConstructionError{Reason: "reading NOFF header", Err: err}
	}

	memSize := header.MemSize(kernel.UserStackSize)
	as.numPages = (memSize + kernel.PageSize - 1) / kernel.PageSize

	if kernel.MaxFramesPerProc > kernel.NumPhysPages {
		kernel.releaseSpaceID(spaceID)
		return nil, &ConstructionError{Reason: "max frames per process exceeds total physical memory"}
	}
	if kernel.MaxFramesPerProc > kernel.Frames.NumClear() {
		kernel.releaseSpaceID(spaceID)
		return nil, &ConstructionError{Reason: "max frames per process exceeds current free frame count"}
	}

	as.pageTable = make([]TranslationEntry, as.numPages)
	for i := range as.pageTable {
		as.pageTable[i] = TranslationEntry{VirtualPage: i, PhysicalPage: -1}
	}

	as.swapName = fmt.Sprintf("SWAP%d", spaceID)
	if err := kernel.FS.Create(as.swapName, int64(as.numPages*kernel.PageSize)); err != nil {
		kernel.releaseSpaceID(spaceID)
		return nil, &ConstructionError{Reason: fmt.Sprintf("creating swap file %s", as.swapName), Err: err}
	}
	as.swapFile, err = kernel.FS.Open(as.swapName)
	if err != nil {
		kernel.releaseSpaceID(spaceID)
		return nil, &ConstructionError{Reason: fmt.Sprintf("opening swap file %s", as.swapName), Err: err}
	}

	if err := noff.CopyIntoSwap(executable, as.swapFile, header, as.numPages, kernel.PageSize); err != nil {
		as.Destroy()
		return nil, &ConstructionError{Reason: "loading executable into swap", Err: err}
	}

	var replay *refstring.Replayer
	switch {
	case opts.RecordRefString:
		rec, err := refstring.NewRecorder(kernel.FS, spaceID)
		if err != nil {
			as.Destroy()
			return nil, &ConstructionError{Reason: "opening reference-string recording files", Err: err}
		}
		as.recorder = rec
	case opts.Policy == replace.OPT:
		r, err := refstring.Load(kernel.FS, spaceID)
		if err != nil {
			as.Destroy()
			return nil, &ConstructionError{Reason: "loading optimal reference string", Err: err}
		}
		replay = r
	}

	policy, err := replace.New(opts.Policy, kernel.MaxFramesPerProc, replay, opts.RandomSeed)
	if err != nil {
		as.Destroy()
		return nil, &ConstructionError{Reason: "constructing replacement policy", Err: err}
	}
	as.policy = policy

	logger.WithFields(map[string]interface{}{
		"space_id":  spaceID,
		"num_pages": as.numPages,
		"policy":    opts.Policy.String(),
	}).Info("address space constructed")
	return as, nil
}

// SpaceID returns this address space's id, used to name its swap and
// reference-string files.
func (as *AddressSpace) SpaceID() int { return as.spaceID }

// NumPages reports the size of this address space's page table.
func (as *AddressSpace) NumPages() int { return as.numPages }

// InitRegisters zeroes the current thread's user registers and sets PC,
// NextPC and the stack pointer, per spec.md §4.5 and addrspace.cc's
// InitRegisters. Must run on the thread that's about to execute in this
// address space.
func (as *AddressSpace) InitRegisters() {
	regs := as.kernel.Scheduler.CurrentThread().Registers()
	for i := 0; i < hal.NumTotalRegs; i++ {
		regs.WriteRegister(i, 0)
	}
	regs.WriteRegister(hal.PCReg, 0)
	regs.WriteRegister(hal.NextPCReg, 4)
	regs.WriteRegister(hal.StackReg, as.numPages*as.kernel.PageSize-16)

	logger.WithField("space_id", as.spaceID).Debug("registers initialized")
}

// SaveState is a no-op: this core keeps no per-address-space MMU state
// beyond the page table itself, which RestoreState re-publishes on every
// switch. Kept as an explicit method (rather than omitted) to mirror the
// original's AddrSpace::SaveState and the context-switch call sites that
// expect to call it unconditionally.
func (as *AddressSpace) SaveState() {}

// RestoreState publishes this address space's page table to the MMU, per
// addrspace.cc's RestoreState.
func (as *AddressSpace) RestoreState() {
	as.kernel.MMU.SetPageTable(as.pageTable, as.numPages)
}

// Use, ClearUse and Dirty implement replace.PageTable against this
// address space's own translation entries, so the replacement policies
// never need to know about TranslationEntry directly.
func (as *AddressSpace) Use(vpn int) bool    { return as.pageTable[vpn].Use }
func (as *AddressSpace) ClearUse(vpn int)    { as.pageTable[vpn].Use = false }
func (as *AddressSpace) Dirty(vpn int) bool  { return as.pageTable[vpn].Dirty }

// UpdatePage runs the replacement policy's per-access bookkeeping for vpn
// and, if this address space is recording its own reference string,
// appends to it. Callers invoke this on every successful translation —
// both a bare hit and the page-in that follows a fault — per spec.md
// §4.3/§4.4.
func (as *AddressSpace) UpdatePage(vpn int) (err error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*replace.FatalInvariantError); ok {
				err = &FatalInvariantError{Reason: fe.Reason}
				return
			}
			panic(r)
		}
	}()

	as.policy.Update(vpn, as)
	if as.recorder != nil {
		as.recorder.Record(vpn)
	}
	return nil
}

// ReplacePage services a page fault at badVAddr: it asks the replacement
// policy for a victim (or a free slot), evicts and writes back a dirty
// victim if one was chosen, pages the faulting page in from swap, and
// marks it resident. Matches the seven-step sequence of spec.md §4.4 and
// addrspace.cc's ExceptionHandler PageFault path. The caller is
// responsible for retrying the faulting instruction afterward and for
// deciding what to do with a returned *FatalInvariantError (spec.md §7:
// errors surface to the initiating thread, there is no retry inside the
// core).
func (as *AddressSpace) ReplacePage(badVAddr int) (err error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*replace.FatalInvariantError); ok {
				err = &FatalInvariantError{Reason: fe.Reason}
				return
			}
			panic(r)
		}
	}()

	as.numPageFaults++
	inPage := badVAddr / as.kernel.PageSize
	if inPage < 0 || inPage >= as.numPages {
		return &FatalInvariantError{Reason: fmt.Sprintf("bad virtual address %d: page %d out of range", badVAddr, inPage)}
	}

	victim := as.policy.FindVictim(inPage, as)

	var frameIdx int
	if victim < 0 {
		frameIdx = as.kernel.Frames.Find()
		if frameIdx < 0 {
			return &FatalInvariantError{Reason: "out of physical memory: no free frame for page fault"}
		}
	} else {
		frameIdx = as.pageTable[victim].PhysicalPage
		if as.pageTable[victim].Dirty {
			if err := as.writeBack(victim, frameIdx); err != nil {
				return err
			}
		}
		as.pageTable[victim].Valid = false
		as.pageTable[victim].PhysicalPage = -1
		as.pageTable[victim].Use = false
		as.pageTable[victim].Dirty = false
	}

	buf := as.kernel.FrameBytes(frameIdx)
	if _, err := as.swapFile.ReadAt(buf, int64(inPage*as.kernel.PageSize)); err != nil {
		if victim < 0 {
			as.kernel.Frames.Clear(frameIdx)
		}
		return fmt.Errorf("vm: reading page %d from swap: %w", inPage, err)
	}

	as.pageTable[inPage].PhysicalPage = frameIdx
	as.pageTable[inPage].Valid = true
	as.pageTable[inPage].Use = true
	as.pageTable[inPage].Dirty = false

	logger.WithFields(map[string]interface{}{
		"space_id": as.spaceID,
		"page":     inPage,
		"frame":    frameIdx,
		"victim":   victim,
	}).Debug("page fault serviced")
	return nil
}

func (as *AddressSpace) writeBack(victimPage, frameIdx int) error {
	data := as.kernel.FrameBytes(frameIdx)
	if _, err := as.swapFile.WriteAt(data, int64(victimPage*as.kernel.PageSize)); err != nil {
		return fmt.Errorf("vm: writing back victim page %d: %w", victimPage, err)
	}
	as.numPageWrites++
	return nil
}

// Access is the MMU-fault entry point a CPU/exception handler calls on
// every memory reference: if the page backing vaddr isn't resident it
// services the fault first, marks the page dirty on a write, and always
// runs the replacement policy's per-access bookkeeping. Matches the
// translate/fault/mark-dirty/update sequence of addrspace.cc's
// ExceptionHandler PageFault case.
func (as *AddressSpace) Access(vaddr int, isWrite bool) error {
	vpn := vaddr / as.kernel.PageSize
	if vpn < 0 || vpn >= as.numPages {
		return &FatalInvariantError{Reason: fmt.Sprintf("virtual address %d outside address space (page %d, numPages %d)", vaddr, vpn, as.numPages)}
	}

	as.mu.Lock()
	valid := as.pageTable[vpn].Valid
	as.mu.Unlock()

	if !valid {
		if err := as.ReplacePage(vaddr); err != nil {
			return err
		}
	}

	as.mu.Lock()
	as.pageTable[vpn].Use = true
	if isWrite {
		as.pageTable[vpn].Dirty = true
	}
	as.mu.Unlock()

	return as.UpdatePage(vpn)
}

// DumpTable returns a copy of this address space's page table, for
// diagnostics (internal/diag) and tests — never the live slice, so
// callers can't corrupt it.
func (as *AddressSpace) DumpTable() []TranslationEntry {
	as.mu.Lock()
	defer as.mu.Unlock()
	out := make([]TranslationEntry, len(as.pageTable))
	copy(out, as.pageTable)
	return out
}

// Metrics returns the page-fault and page-write counters spec.md §4
// names for per-process diagnostics.
func (as *AddressSpace) Metrics() (pageFaults, pageWrites int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.numPageFaults, as.numPageWrites
}

// Destroy releases every resource this address space holds: resident
// frames, the swap file, any reference-string recording files, and its
// address-space id. Safe to call on a partially constructed
// AddressSpace, and safe to call more than once.
func (as *AddressSpace) Destroy() {
	as.mu.Lock()
	for i := range as.pageTable {
		if as.pageTable[i].Valid && as.pageTable[i].PhysicalPage >= 0 {
			as.kernel.Frames.Clear(as.pageTable[i].PhysicalPage)
			as.pageTable[i].Valid = false
			as.pageTable[i].PhysicalPage = -1
		}
	}
	as.mu.Unlock()

	if as.swapFile != nil {
		as.swapFile.Close()
		as.swapFile = nil
	}
	if as.recorder != nil {
		as.recorder.Close()
		as.recorder = nil
	}
	as.kernel.releaseSpaceID(as.spaceID)

	logger.WithField("space_id", as.spaceID).Info("address space destroyed")
}

// HandleFault is the shallow, single decision point spec.md §9 calls for:
// it runs Access and, only for a FatalInvariantError, terminates the
// current thread. Every other error (a swap I/O failure, for instance) is
// returned untouched — the core never decides on a process's behalf that
// a transient I/O error is fatal.
func HandleFault(kernel *Kernel, as *AddressSpace, vaddr int, isWrite bool) error {
	err := as.Access(vaddr, isWrite)
	if err == nil {
		return nil
	}
	var fatal *FatalInvariantError
	if errors.As(err, &fatal) {
		kernel.Scheduler.CurrentThread().Finish(fatal.Error())
	}
	return err
}
