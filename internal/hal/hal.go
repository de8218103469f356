// Package hal declares the interfaces the address-space core consumes from
// its out-of-scope collaborators (spec.md §1 OUT OF SCOPE): the file
// system, the synchronous disk, the interrupt controller, and the
// scheduler/current-thread. The core never reaches for a process-wide
// singleton (the teacher's original C++ ancestor used currentThread,
// fileSystem, synchDisk, machine as globals); instead a Kernel value
// bundling these is threaded through constructors and fault handlers, per
// spec.md §9's redesign note.
package hal

// File is an open handle on the file system, offering the random-access
// read/write the core needs for swap files and executables.
type File interface {
	ReadAt(buf []byte, offset int64) (int, error)
	WriteAt(buf []byte, offset int64) (int, error)
	Size() (int64, error)
	Close() error
}

// FileSystem is the in-kernel file system the core loads executables from
// and creates/opens swap and reference-string files through.
type FileSystem interface {
	Create(name string, size int64) error
	Open(name string) (File, error)
	Remove(name string) error
}

// Disk is the synchronous block device underlying the file system. The
// core never calls it directly — swap I/O goes through FileSystem/File —
// but it is the collaborator spec.md names as backing the victim's page.
// pkg/memsim has an in-memory implementation; memsim's own FileSystem is
// not layered over it.
type Disk interface {
	SectorSize() int
	NumSectors() int
	ReadSector(sector int, buf []byte) error
	WriteSector(sector int, buf []byte) error
}

// Register indices for the subset of the MIPS-style register bank
// InitRegisters touches, matching Nachos's machine.h numbering.
const (
	NumTotalRegs = 40
	StackReg     = 29
	PCReg        = 34
	NextPCReg    = 35
)

// RegisterBank is the user-mode CPU register file InitRegisters writes.
type RegisterBank interface {
	WriteRegister(index int, value int)
	ReadRegister(index int) int
}

// Thread is the current kernel thread abstraction: the only primitive the
// core needs from the scheduler is the ability to terminate itself on a
// fatal path, and access to its user-register bank for InitRegisters.
type Thread interface {
	Finish(reason string)
	Registers() RegisterBank
}

// Scheduler supplies the current thread. The core never names a thread by
// identity beyond "whoever is running now".
type Scheduler interface {
	CurrentThread() Thread
}

// MMU is the machine's memory-management unit, published to on
// AddressSpace.RestoreState. pageTable is an opaque handle (a
// []vm.TranslationEntry in practice) so this package does not need to
// import the vm package that defines TranslationEntry.
type MMU interface {
	SetPageTable(pageTable any, numPages int)
}

// InterruptController masks/unmasks IRQs around critical sections entered
// through CriticalSection.
type InterruptController interface {
	// SetLevel enables or disables interrupts and returns the previous
	// level, mirroring Nachos's Interrupt::SetLevel.
	SetLevel(enabled bool) bool
}
