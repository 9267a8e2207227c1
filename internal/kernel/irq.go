package kernel

import "sync"

// InterruptFrame is the CPU register frame an IRQ dispatch carries. The
// core treats its contents as opaque — it only ever passes the frame
// pointer through to Scheduler.SaveState — so the fields here are a
// minimal x86 flavor rather than a byte-exact match of any specific trap
// frame.
type InterruptFrame struct {
	EIP, ESP, EFLAGS   uint32
	EAX, EBX, ECX, EDX uint32
}

// Handler is a registered IRQ handler. It returns non-zero when the
// dispatcher should invoke the scheduler's bottom half after servicing
// the interrupt.
type Handler func(irq uint8, r *InterruptFrame) int

const numIRQLines = 16

// irqTable is the fixed array of 16 handler slots plus a per-line
// unhandled-fire counter.
type irqTable struct {
	mu        sync.RWMutex
	handlers  [numIRQLines]Handler
	unhandled [numIRQLines]uint64
}

// Dispatcher multiplexes vectors 32..47 into the registered handlers,
// enforces IRQ nesting/masking policy, and decides when to invoke the
// scheduler's bottom half.
type Dispatcher struct {
	pic     *PIC
	preempt *Preemption
	sched   Scheduler
	table   irqTable

	vectorBase uint8 // 32 in the canonical remap
}

// NewDispatcher wires a Dispatcher to the given PIC, preemption counter,
// and scheduler. vectorBase is the first vector the PIC was remapped to
// (32 for the master in the canonical remap).
func NewDispatcher(pic *PIC, preempt *Preemption, sched Scheduler, vectorBase uint8) *Dispatcher {
	return &Dispatcher{pic: pic, preempt: preempt, sched: sched, vectorBase: vectorBase}
}

// InstallHandler records fn for irq and clears its PIC mask.
func (d *Dispatcher) InstallHandler(irq uint8, fn Handler) {
	d.table.mu.Lock()
	d.table.handlers[irq] = fn
	d.table.mu.Unlock()

	d.pic.ClearMask(irq)
}

// UninstallHandler clears the slot for irq. The line is deliberately left
// in whatever mask state InstallHandler last set, rather than re-masked or
// unmasked, until a new handler installs and clears the mask again.
func (d *Dispatcher) UninstallHandler(irq uint8) {
	d.table.mu.Lock()
	d.table.handlers[irq] = nil
	d.table.mu.Unlock()
}

// UnhandledCount reports how many times irq fired with no handler
// installed.
func (d *Dispatcher) UnhandledCount(irq uint8) uint64 {
	d.table.mu.RLock()
	defer d.table.mu.RUnlock()

	return d.table.unhandled[irq]
}

// Dispatch runs the full dispatch sequence for vector v against register
// frame r. hwInterruptsDisabled must be true: it models the dispatcher's
// own assertion that it is entered with interrupts already disabled by
// hardware; enableFn/disableFn let the caller observe exactly when the
// dispatcher flips the hardware interrupt-enable flag. Either may be nil.
func (d *Dispatcher) Dispatch(v uint8, r *InterruptFrame, hwInterruptsDisabled bool, enableFn, disableFn func()) {
	if !hwInterruptsDisabled {
		panic("kernel: IRQ dispatch entered with interrupts enabled")
	}

	irq := v - d.vectorBase

	if d.pic.IsSpurious(irq) {
		return
	}

	// Step 2: the timer (irq 0) is allowed to nest with itself so it can
	// keep ticking while a slow timer handler runs; every other line is
	// masked to prevent re-entrancy.
	maskThisLine := irq != 0
	if maskThisLine {
		d.pic.SetMask(irq)
	}

	// Step 3. Whether a reschedule will be permitted is decided right now,
	// at the moment this dispatch's own disable takes effect: count == 1
	// means nobody else had preemption disabled before us, so once we
	// undo our own disable in step 6 the scheduler's precondition
	// (preempt_disable_count == 0) will hold. If count > 1, some other
	// code path (or a nested IRQ) already had preemption disabled, and
	// this dispatch must not be the one to invoke the scheduler.
	d.preempt.Disable()
	canSchedule := d.preempt.Count() == 1
	d.preempt.PushNested(v)

	// Step 4: EOI before re-enabling interrupts.
	d.pic.SendEOI(irq)

	// Step 5.
	if enableFn != nil {
		enableFn()
	}

	reschedule := d.runHandler(irq, r)

	if disableFn != nil {
		disableFn()
	}

	// Step 6.
	d.preempt.PopNested()
	d.preempt.Enable()

	if maskThisLine {
		d.pic.ClearMask(irq)
	}

	// Step 7.
	if reschedule != 0 && canSchedule {
		current := d.sched.Current()
		if current != nil {
			d.sched.SaveState(current, r)
		}

		d.sched.ScheduleOutsideInterrupt()
	}
}

func (d *Dispatcher) runHandler(irq uint8, r *InterruptFrame) int {
	d.table.mu.RLock()
	fn := d.table.handlers[irq]
	d.table.mu.RUnlock()

	if fn == nil {
		d.table.mu.Lock()
		d.table.unhandled[irq]++
		d.table.mu.Unlock()

		return 0
	}

	return fn(irq, r)
}
