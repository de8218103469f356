package vm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utnfrba-so/go-nachos-vm/internal/noff"
	"github.com/utnfrba-so/go-nachos-vm/internal/replace"
	"github.com/utnfrba-so/go-nachos-vm/pkg/memsim"
)

const testPageSize = 16

func buildExecutable(codeBytes []byte) []byte {
	header := make([]byte, noff.HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], noff.Magic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(codeBytes)))
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], uint32(noff.HeaderSize))
	return append(header, codeBytes...)
}

// testKernel builds a Kernel plus an executable named "EXE" sized to
// numCodePages pages of testPageSize bytes, with physPages physical
// frames and maxFrames per process.
func testKernel(t *testing.T, numCodePages, physPages, maxFrames int) *Kernel {
	t.Helper()
	fs := memsim.NewFileSystem()
	code := make([]byte, testPageSize*numCodePages)
	for i := range code {
		code[i] = byte(i)
	}
	raw := buildExecutable(code)
	require.NoError(t, fs.Create("EXE", int64(len(raw))))
	exe, err := fs.Open("EXE")
	require.NoError(t, err)
	_, err = exe.WriteAt(raw, 0)
	require.NoError(t, err)
	require.NoError(t, exe.Close())

	sched := memsim.NewScheduler()
	sched.SetCurrentThread(memsim.NewThread("t"))

	return NewKernel(Config{
		PageSize:         testPageSize,
		NumPhysPages:     physPages,
		MaxFramesPerProc: maxFrames,
		UserStackSize:    testPageSize, // one extra stack page
	}, fs, sched, memsim.NewInterruptController(), memsim.NewMMU())
}

func TestNewAddressSpaceSizesPageTable(t *testing.T) {
	kernel := testKernel(t, 2, 8, 4)

	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	// 2 code pages + 1 stack page.
	assert.Equal(t, 3, as.NumPages())
}

func TestAddressSpaceAccessFaultsThenHits(t *testing.T) {
	kernel := testKernel(t, 1, 8, 4)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	faultsBefore, _ := as.Metrics()
	require.Equal(t, 0, faultsBefore)

	require.NoError(t, as.Access(0, false))
	faultsAfter, _ := as.Metrics()
	assert.Equal(t, 1, faultsAfter, "the first touch of a page must fault")

	require.NoError(t, as.Access(1, false))
	faultsStill, _ := as.Metrics()
	assert.Equal(t, 1, faultsStill, "a second byte on the same page must not fault again")
}

func TestAddressSpaceAccessMarksDirtyOnWrite(t *testing.T) {
	kernel := testKernel(t, 1, 8, 4)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	require.NoError(t, as.Access(0, true))
	dump := as.DumpTable()
	assert.True(t, dump[0].Dirty)
}

func TestAddressSpaceEvictsWithinFrameBudget(t *testing.T) {
	kernel := testKernel(t, 4, 8, 1)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	// Four distinct pages, one frame: every access after the first must
	// both fault and evict the page before it.
	for page := 0; page < 4; page++ {
		require.NoError(t, as.Access(page*testPageSize, false))
	}
	faults, _ := as.Metrics()
	assert.Equal(t, 4, faults)

	dump := as.DumpTable()
	residents := 0
	for _, e := range dump {
		if e.Valid {
			residents++
		}
	}
	assert.Equal(t, 1, residents, "only one page may be resident at a time under a one-frame budget")
}

func TestAddressSpaceAccessOutOfRangeIsFatal(t *testing.T) {
	kernel := testKernel(t, 1, 8, 4)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	err = as.Access(as.NumPages()*testPageSize, false)
	var fatal *FatalInvariantError
	assert.ErrorAs(t, err, &fatal)
}

func TestAddressSpaceOutOfPhysicalMemoryIsFatal(t *testing.T) {
	kernel := testKernel(t, 1, 2, 2)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	// A sibling process claims every physical frame before this one ever
	// faults, so even though its own frame budget has room the kernel has
	// none left to give it.
	require.NotEqual(t, -1, kernel.Frames.Find())
	require.NotEqual(t, -1, kernel.Frames.Find())

	err = as.Access(0, false)
	var fatal *FatalInvariantError
	assert.ErrorAs(t, err, &fatal)
}

func TestDestroyReleasesFramesAndSpaceID(t *testing.T) {
	kernel := testKernel(t, 1, 8, 4)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	require.NoError(t, as.Access(0, false))

	freeBefore := kernel.Frames.NumClear()
	as.Destroy()
	assert.Greater(t, kernel.Frames.NumClear(), freeBefore)

	// The released id must be reusable.
	as2, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as2.Destroy()
	assert.Equal(t, as.SpaceID(), as2.SpaceID())
}

func TestHandleFaultFinishesThreadOnFatalInvariant(t *testing.T) {
	kernel := testKernel(t, 1, 8, 4)
	as, err := NewAddressSpace(kernel, "EXE", Options{Policy: replace.FIFO})
	require.NoError(t, err)
	defer as.Destroy()

	err = HandleFault(kernel, as, as.NumPages()*testPageSize, false)
	assert.Error(t, err)
	thread := kernel.Scheduler.CurrentThread().(*memsim.Thread)
	assert.True(t, thread.Finished)
}
