package hal

// CriticalSection models a cooperative-kernel critical section guarded by
// IRQ masking, generalized from the teacher's channel-backed Semaforo
// (utils/semaforo.go). Unlike a plain sync.Mutex it goes through the
// supplied InterruptController so the interrupt disable/enable pairing
// around a shared-state mutation is explicit at the call site rather than
// implicit in a mutex. In this module it guards the kernel's PID bitmap
// only; the frame allocator and each AddressSpace lock with a sync.Mutex
// and do not mask interrupts.
type CriticalSection struct {
	irq  InterruptController
	lock chan struct{}
}

// NewCriticalSection builds a critical section over irq. irq may be nil,
// in which case only the mutual-exclusion channel is used (useful for
// tests that don't model an interrupt controller).
func NewCriticalSection(irq InterruptController) *CriticalSection {
	return &CriticalSection{
		irq:  irq,
		lock: make(chan struct{}, 1),
	}
}

// Enter masks interrupts and acquires exclusive entry. The returned func
// restores the previous interrupt level and releases entry; call it with
// defer.
func (cs *CriticalSection) Enter() func() {
	cs.lock <- struct{}{}
	var previous bool
	if cs.irq != nil {
		previous = cs.irq.SetLevel(false)
	}
	return func() {
		if cs.irq != nil {
			cs.irq.SetLevel(previous)
		}
		<-cs.lock
	}
}
