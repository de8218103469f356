package memsim

import "github.com/utnfrba-so/go-nachos-vm/internal/hal"

// Registers is a flat hal.RegisterBank backed by a plain slice, sized to
// hal.NumTotalRegs.
type Registers struct {
	values [hal.NumTotalRegs]int
}

func (r *Registers) WriteRegister(index int, value int) { r.values[index] = value }
func (r *Registers) ReadRegister(index int) int          { return r.values[index] }

// Thread is a minimal hal.Thread: it owns a Registers bank and records
// whether and why it was finished, instead of actually tearing down a
// goroutine.
type Thread struct {
	Name      string
	regs      *Registers
	Finished  bool
	FinishMsg string
}

// NewThread returns a fresh, unfinished Thread named name.
func NewThread(name string) *Thread {
	return &Thread{Name: name, regs: &Registers{}}
}

func (t *Thread) Finish(reason string) {
	t.Finished = true
	t.FinishMsg = reason
}

func (t *Thread) Registers() hal.RegisterBank { return t.regs }

// Scheduler is a single-thread hal.Scheduler stand-in: CurrentThread
// always returns whichever Thread was last set with SetCurrentThread.
type Scheduler struct {
	current *Thread
}

// NewScheduler returns a Scheduler with no current thread set.
func NewScheduler() *Scheduler { return &Scheduler{} }

// SetCurrentThread changes which thread CurrentThread reports.
func (s *Scheduler) SetCurrentThread(t *Thread) { s.current = t }

func (s *Scheduler) CurrentThread() hal.Thread { return s.current }

// InterruptController is a trivial hal.InterruptController: it just
// tracks the current enabled/disabled level without actually masking
// anything.
type InterruptController struct {
	enabled bool
}

// NewInterruptController returns an InterruptController starting enabled.
func NewInterruptController() *InterruptController {
	return &InterruptController{enabled: true}
}

func (ic *InterruptController) SetLevel(enabled bool) bool {
	previous := ic.enabled
	ic.enabled = enabled
	return previous
}

// MMU records the last page table published to it via SetPageTable, for
// tests to assert RestoreState actually ran.
type MMU struct {
	PageTable any
	NumPages  int
}

// NewMMU returns an MMU with no page table set.
func NewMMU() *MMU { return &MMU{} }

func (m *MMU) SetPageTable(pageTable any, numPages int) {
	m.PageTable = pageTable
	m.NumPages = numPages
}

// Disk is an in-memory hal.Disk: numSectors fixed-size sectors backed by
// a single byte slice, offered mainly so tests can exercise a file
// system layered over block storage if they choose to.
type Disk struct {
	sectorSize int
	sectors    []byte
}

// NewDisk returns a Disk of numSectors sectors of sectorSize bytes each.
func NewDisk(sectorSize, numSectors int) *Disk {
	return &Disk{sectorSize: sectorSize, sectors: make([]byte, sectorSize*numSectors)}
}

func (d *Disk) SectorSize() int { return d.sectorSize }
func (d *Disk) NumSectors() int { return len(d.sectors) / d.sectorSize }

func (d *Disk) ReadSector(sector int, buf []byte) error {
	start := sector * d.sectorSize
	copy(buf, d.sectors[start:start+d.sectorSize])
	return nil
}

func (d *Disk) WriteSector(sector int, buf []byte) error {
	start := sector * d.sectorSize
	copy(d.sectors[start:start+d.sectorSize], buf)
	return nil
}
