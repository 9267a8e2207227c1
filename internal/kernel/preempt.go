// Package kernel implements the concurrency substrate of the kernel core:
// the preemption/nesting counters, the PIC-backed IRQ dispatcher, the
// wait-object/sleep-queue model, and the kernel mutex built on top of them.
package kernel

import "sync/atomic"

// Preemption tracks two global, non-negative counters: the preemption
// disable nesting depth and the IRQ nesting depth. On real hardware these
// need no locking because a single logical CPU is assumed; here "tasks"
// run as goroutines, so the counters are kept atomic to stay race-free
// under `go test -race` while callers still reason about them as simple
// counters.
type Preemption struct {
	disableCount atomic.Int32
	nestDepth    atomic.Int32
	nestStack    []uint8
}

// NewPreemption returns a zeroed preemption/nesting tracker.
func NewPreemption() *Preemption {
	return &Preemption{}
}

// Disable increments preempt_disable_count.
func (p *Preemption) Disable() {
	p.disableCount.Add(1)
}

// Enable decrements preempt_disable_count. It panics if the counter would
// go negative, which indicates an unbalanced Disable/Enable pair.
func (p *Preemption) Enable() {
	if p.disableCount.Add(-1) < 0 {
		panic("kernel: preemption enabled more times than disabled")
	}
}

// Count reports the current value of preempt_disable_count.
func (p *Preemption) Count() int32 {
	return p.disableCount.Load()
}

// Disabled reports whether rescheduling is currently forbidden.
func (p *Preemption) Disabled() bool {
	return p.Count() > 0
}

// PushNested records entry into IRQ vector v, growing nested_interrupts_depth
// by one. The stack is only ever touched with interrupts disabled by the
// caller (the IRQ dispatcher), so a plain slice suffices; the counter
// itself is kept atomic for observers that read depth without holding
// that discipline (tests, diagnostics).
func (p *Preemption) PushNested(v uint8) {
	p.nestStack = append(p.nestStack, v)
	p.nestDepth.Add(1)
}

// PopNested undoes the most recent PushNested.
func (p *Preemption) PopNested() {
	if len(p.nestStack) == 0 {
		panic("kernel: nested interrupt pop with empty stack")
	}

	p.nestStack = p.nestStack[:len(p.nestStack)-1]
	p.nestDepth.Add(-1)
}

// NestDepth reports nested_interrupts_depth.
func (p *Preemption) NestDepth() int32 {
	return p.nestDepth.Load()
}

// InIRQ reports whether the current call is nested inside an IRQ handler,
// i.e. nested_interrupts_depth > 0. The mutex operations assert this is
// false before they run.
func (p *Preemption) InIRQ() bool {
	return p.NestDepth() > 0
}
