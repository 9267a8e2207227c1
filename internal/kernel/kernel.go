package kernel

import "fmt"

// Config holds the handful of knobs this core's components actually read:
// the PIC's vector remap offsets and the boot banner's display fields.
// Memory management and process-scheduler policy are out of scope for this
// core, which covers only the concurrency/IO substrate, so no such fields
// appear here.
type Config struct {
	// MasterVectorOffset/SlaveVectorOffset are the ICW2 values the PIC is
	// remapped to. 32/40 is the canonical choice that keeps IRQs clear of
	// the CPU's own exception vectors 0..31.
	MasterVectorOffset uint8
	SlaveVectorOffset  uint8

	// Name/Version are cosmetic, used only by the boot banner.
	Name    string
	Version string
}

// DefaultConfig returns the canonical remap offsets and a generic banner.
func DefaultConfig() Config {
	return Config{
		MasterVectorOffset: 32,
		SlaveVectorOffset:  40,
		Name:               "sparrow",
		Version:            "0.1.0",
	}
}

// Kernel wires the core components — preemption/nesting counters, PIC, IRQ
// dispatcher, kernel mutex subsystem, task/scheduler — into one constructible
// object. There is no package-level singleton: every caller, including every
// test, gets its own instance from New, so concurrent tests never share
// state through a global.
type Kernel struct {
	cfg Config

	Preempt *Preemption
	PIC     *PIC
	IRQ     *Dispatcher
	Tasks   *TaskManager
}

// New builds a Kernel against the given PortBus (typically NewSimPorts() in
// tests, or a real-hardware PortBus outside this hosted environment),
// remaps the PIC per cfg, and wires the IRQ dispatcher and mutex allocator
// against a fresh TaskManager.
func New(cfg Config, bus PortBus) *Kernel {
	preempt := NewPreemption()
	pic := NewPIC(bus)
	tasks := NewTaskManager()
	irq := NewDispatcher(pic, preempt, tasks, cfg.MasterVectorOffset)

	pic.Remap(cfg.MasterVectorOffset, cfg.SlaveVectorOffset)

	return &Kernel{
		cfg:     cfg,
		Preempt: preempt,
		PIC:     pic,
		IRQ:     irq,
		Tasks:   tasks,
	}
}

// NewMutex allocates a mutex bound to this Kernel's preemption counter.
func (k *Kernel) NewMutex(flags MutexFlag) *Mutex {
	return NewMutex(k.Preempt, flags)
}

// BootBanner renders a one-line summary of what this core actually owns:
// the PIC remap offsets and IRQ dispatch readiness.
func (k *Kernel) BootBanner() string {
	return fmt.Sprintf(
		"%s kernel v%s - PIC remapped to %d/%d, IRQ dispatch ready\n",
		k.cfg.Name, k.cfg.Version, k.cfg.MasterVectorOffset, k.cfg.SlaveVectorOffset,
	)
}
