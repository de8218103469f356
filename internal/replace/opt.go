package replace

import "github.com/utnfrba-so/go-nachos-vm/internal/refstring"

// optPolicy is Belady's optimal algorithm: it evicts whichever resident
// page's next use lies farthest in the future (or never recurs), which
// requires the full reference string loaded up front.
type optPolicy struct {
	pagesInMem []int
	idx        int
	replay     *refstring.Replayer
}

func (p *optPolicy) Update(vpn int, pt PageTable) {
	if !p.replay.Advance(vpn) {
		panic(&FatalInvariantError{Reason: "optimal reference string exhausted or mismatched"})
	}
}

func (p *optPolicy) FindVictim(inPage int, pt PageTable) int {
	n := len(p.pagesInMem)
	if p.pagesInMem[p.idx] < 0 {
		p.pagesInMem[p.idx] = inPage
		p.idx = (p.idx + 1) % n
		return -1
	}

	from := p.replay.Index()
	farthest := -1
	victimSlot := 0

	for i := 0; i < n; i++ {
		page := p.pagesInMem[i]
		next := p.replay.NextOccurrence(page, from)
		if next == -1 {
			// This page is never referenced again: an immediate, certain victim.
			p.pagesInMem[i] = inPage
			return page
		}
		if dist := next - from; dist > farthest {
			farthest = dist
			victimSlot = i
		}
	}

	victim := p.pagesInMem[victimSlot]
	p.pagesInMem[victimSlot] = inPage
	return victim
}
