package replace

// secondChancePolicy is the classic clock algorithm: scan from idx,
// clearing use bits on resident pages that still have theirs set, and
// evicting the first one found with use already clear.
type secondChancePolicy struct {
	pagesInMem []int
	idx        int
}

func (p *secondChancePolicy) Update(vpn int, pt PageTable) {}

func (p *secondChancePolicy) FindVictim(inPage int, pt PageTable) int {
	n := len(p.pagesInMem)
	for {
		cur := p.pagesInMem[p.idx]
		if cur < 0 {
			p.pagesInMem[p.idx] = inPage
			p.idx = (p.idx + 1) % n
			return -1
		}
		if pt.Use(cur) {
			pt.ClearUse(cur)
			p.idx = (p.idx + 1) % n
			continue
		}
		victim := cur
		p.pagesInMem[p.idx] = inPage
		p.idx = (p.idx + 1) % n
		return victim
	}
}

// enhancedSecondChancePolicy is the four-pass (use, dirty) variant: it
// prefers a clean, unused victim over a dirty one to avoid an unnecessary
// write-back. Only passes 1 and 2 clear use bits (pass 3 repeats pass 1's
// test against now-possibly-cleared bits, pass 4 repeats pass 2's).
type enhancedSecondChancePolicy struct {
	pagesInMem []int
	idx        int
}

func (p *enhancedSecondChancePolicy) Update(vpn int, pt PageTable) {}

func (p *enhancedSecondChancePolicy) FindVictim(inPage int, pt PageTable) int {
	n := len(p.pagesInMem)

	for loop := 1; loop <= 4; loop++ {
		for i := 0; i < n; i++ {
			cur := p.pagesInMem[p.idx]

			switch loop {
			case 1, 3:
				if loop == 1 && cur < 0 {
					p.pagesInMem[p.idx] = inPage
					p.idx = (p.idx + 1) % n
					return -1
				}
				if cur >= 0 && !pt.Use(cur) && !pt.Dirty(cur) {
					victim := cur
					p.pagesInMem[p.idx] = inPage
					p.idx = (p.idx + 1) % n
					return victim
				}
				if loop == 1 && cur >= 0 && pt.Use(cur) {
					pt.ClearUse(cur)
				}
			default: // loop == 2, 4
				if cur >= 0 && !pt.Use(cur) && pt.Dirty(cur) {
					victim := cur
					p.pagesInMem[p.idx] = inPage
					p.idx = (p.idx + 1) % n
					return victim
				} else if loop == 2 && cur >= 0 && pt.Use(cur) {
					pt.ClearUse(cur)
				}
			}

			p.idx = (p.idx + 1) % n
		}
	}

	panic(&FatalInvariantError{Reason: "enhanced second-chance failed to find a victim within four passes"})
}
