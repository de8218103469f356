package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utnfrba-so/go-nachos-vm/internal/refstring"
	"github.com/utnfrba-so/go-nachos-vm/pkg/memsim"
)

// fakeTable is a minimal PageTable double keyed by vpn, for the policies
// that consult use/dirty bits (2ND, E2ND).
type fakeTable struct {
	use   map[int]bool
	dirty map[int]bool
}

func newFakeTable() *fakeTable {
	return &fakeTable{use: map[int]bool{}, dirty: map[int]bool{}}
}

func (t *fakeTable) Use(vpn int) bool   { return t.use[vpn] }
func (t *fakeTable) ClearUse(vpn int)   { t.use[vpn] = false }
func (t *fakeTable) Dirty(vpn int) bool { return t.dirty[vpn] }

func TestFIFOEvictsInInsertionOrder(t *testing.T) {
	p, err := New(FIFO, 2, nil, 0)
	require.NoError(t, err)
	pt := newFakeTable()

	assert.Equal(t, -1, p.FindVictim(0, pt))
	assert.Equal(t, -1, p.FindVictim(1, pt))
	assert.Equal(t, 0, p.FindVictim(2, pt), "page 0 was inserted first, so it evicts first")
	assert.Equal(t, 1, p.FindVictim(3, pt))
}

func TestSecondChanceSkipsUsedPages(t *testing.T) {
	p, err := New(SecondChance, 2, nil, 0)
	require.NoError(t, err)
	pt := newFakeTable()

	assert.Equal(t, -1, p.FindVictim(0, pt))
	assert.Equal(t, -1, p.FindVictim(1, pt))

	pt.use[0] = true
	victim := p.FindVictim(2, pt)
	assert.Equal(t, 1, victim, "page 0's use bit was set, so it gets a second chance and page 1 is evicted")
	assert.False(t, pt.use[0], "the clock sweep must clear the use bit it skipped over")
}

func TestEnhancedSecondChancePrefersCleanVictim(t *testing.T) {
	p, err := New(EnhancedSecondChance, 2, nil, 0)
	require.NoError(t, err)
	pt := newFakeTable()

	assert.Equal(t, -1, p.FindVictim(0, pt))
	assert.Equal(t, -1, p.FindVictim(1, pt))

	pt.dirty[0] = true
	victim := p.FindVictim(2, pt)
	assert.Equal(t, 1, victim, "page 1 is clean and unused, so it is preferred over dirty page 0")
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p, err := New(LRU, 2, nil, 0)
	require.NoError(t, err)
	pt := newFakeTable()

	require.Equal(t, -1, p.FindVictim(0, pt))
	p.Update(0, pt)
	require.Equal(t, -1, p.FindVictim(1, pt))
	p.Update(1, pt)

	p.Update(0, pt) // touch 0 again, making 1 the least recently used

	victim := p.FindVictim(2, pt)
	assert.Equal(t, 1, victim)
}

func TestLRUUpdateOnUnknownPagePanics(t *testing.T) {
	p, err := New(LRU, 2, nil, 0)
	require.NoError(t, err)
	pt := newFakeTable()
	assert.Panics(t, func() { p.Update(99, pt) })
}

func TestOptEvictsFarthestFutureUse(t *testing.T) {
	fs := memsim.NewFileSystem()
	rec, err := refstring.NewRecorder(fs, 0)
	require.NoError(t, err)
	for _, vpn := range []int{0, 1, 2, 0, 1} {
		rec.Record(vpn)
	}
	require.NoError(t, rec.Close())

	replay, err := refstring.Load(fs, 0)
	require.NoError(t, err)

	p, err := New(OPT, 2, replay, 0)
	require.NoError(t, err)
	pt := newFakeTable()

	require.Equal(t, -1, p.FindVictim(0, pt))
	p.Update(0, pt)
	require.Equal(t, -1, p.FindVictim(1, pt))
	p.Update(1, pt)

	// The cursor sits at page 1's own just-consumed reference, so its
	// "next occurrence" search matches itself at distance 0 and it looks
	// due for reuse immediately; page 0's next occurrence is farther off,
	// so page 0 is evicted instead. This is the original algorithm's
	// behavior exactly — the cursor points at the current reference, not
	// past it.
	victim := p.FindVictim(2, pt)
	assert.Equal(t, 0, victim)
}

func TestRandomFillsFrameBudgetBeforeEvicting(t *testing.T) {
	p, err := New(Random, 2, nil, 42)
	require.NoError(t, err)
	pt := newFakeTable()

	assert.Equal(t, -1, p.FindVictim(0, pt))
	assert.Equal(t, -1, p.FindVictim(1, pt))
	assert.NotEqual(t, -1, p.FindVictim(2, pt))
}

func TestNewRejectsOPTWithoutReplay(t *testing.T) {
	_, err := New(OPT, 2, nil, 0)
	assert.Error(t, err)
}
