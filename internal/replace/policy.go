// Package replace implements the six page-replacement policies of
// spec.md §4.3 behind a single two-operation interface, as the design
// notes (spec.md §9) call for: "model as a sum type with six variants or
// an interface with two operations... each variant carries only the state
// it needs."
//
// Grounded on addrspace.cc's findPageFIFO/findPage2ndChance/
// findPageE2ndChance/findPageLRU/findPageOpt/findPageRand and
// updatePageLRU/updatePageOpt (_examples/original_source/code/lab7).
package replace

import (
	"fmt"
	"math/rand"

	"github.com/utnfrba-so/go-nachos-vm/internal/refstring"
)

// PageTable is the minimal view of the owning address space's translation
// entries a policy needs: the use and dirty bits of a resident page.
// Implemented by internal/vm so this package never imports vm.
type PageTable interface {
	Use(vpn int) bool
	ClearUse(vpn int)
	Dirty(vpn int) bool
}

// Policy is the interface every replacement strategy implements.
type Policy interface {
	// Update is called on every successful translation (hit or
	// fault-then-map), per spec.md §4.3/§4.4.
	Update(vpn int, pt PageTable)
	// FindVictim returns the vpn of the victim to evict, or -1 if a free
	// slot in this process's frame budget is still available.
	FindVictim(inPage int, pt PageTable) int
}

// FatalInvariantError marks a violation of one of spec.md §7's
// FatalInvariant conditions: an exhausted/mismatched OPT reference string,
// a page the LRU stack was supposed to hold but doesn't, or
// Enhanced-Second-Chance failing to pick a victim within four passes.
// Policy implementations panic with *FatalInvariantError; callers in
// internal/vm recover it at the replacePage/updatePage boundary and
// surface it as a normal error, per the "typed failure surface" redesign
// note in spec.md §9.
type FatalInvariantError struct {
	Reason string
}

func (e *FatalInvariantError) Error() string {
	return fmt.Sprintf("replace: fatal invariant violated: %s", e.Reason)
}

// Kind enumerates the six policies, mirroring the original's
// PageRepAlg enum (PRA_OPT, PRA_FIFO, PRA_2ND, PRA_E2ND, PRA_LRU, PRA_RAND).
type Kind int

const (
	FIFO Kind = iota
	SecondChance
	EnhancedSecondChance
	LRU
	OPT
	Random
)

func (k Kind) String() string {
	switch k {
	case FIFO:
		return "FIFO"
	case SecondChance:
		return "2ND"
	case EnhancedSecondChance:
		return "E2ND"
	case LRU:
		return "LRU"
	case OPT:
		return "OPT"
	case Random:
		return "RAND"
	default:
		return "UNKNOWN"
	}
}

func newPagesInMem(maxFramesPerProc int) []int {
	pm := make([]int, maxFramesPerProc)
	for i := range pm {
		pm[i] = -1
	}
	return pm
}

// New builds the Policy instance for kind. replay is required (non-nil)
// only for OPT; seed drives the Random policy's source.
func New(kind Kind, maxFramesPerProc int, replay *refstring.Replayer, seed int64) (Policy, error) {
	pagesInMem := newPagesInMem(maxFramesPerProc)

	switch kind {
	case FIFO:
		return &fifoPolicy{pagesInMem: pagesInMem}, nil
	case SecondChance:
		return &secondChancePolicy{pagesInMem: pagesInMem}, nil
	case EnhancedSecondChance:
		return &enhancedSecondChancePolicy{pagesInMem: pagesInMem}, nil
	case LRU:
		return &lruPolicy{pagesInMem: pagesInMem}, nil
	case Random:
		return &randomPolicy{pagesInMem: pagesInMem, rng: rand.New(rand.NewSource(seed))}, nil
	case OPT:
		if replay == nil {
			return nil, fmt.Errorf("replace: OPT policy requires a loaded reference string")
		}
		return &optPolicy{pagesInMem: pagesInMem, replay: replay}, nil
	default:
		return nil, fmt.Errorf("replace: unknown policy kind %d", kind)
	}
}
