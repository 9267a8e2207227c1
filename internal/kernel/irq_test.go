package kernel

import "testing"

func TestDispatchUnhandledCounter(t *testing.T) {
	bus := NewSimPorts()
	pic := NewPIC(bus)
	pic.Remap(32, 40)
	preempt := NewPreemption()
	tasks := NewTaskManager()
	d := NewDispatcher(pic, preempt, tasks, 32)

	bus.SetISR(1 << 1) // line 1 genuinely in service, not spurious

	d.Dispatch(33, &InterruptFrame{}, true, nil, nil)

	if got := d.UnhandledCount(1); got != 1 {
		t.Fatalf("UnhandledCount(1) = %d, want 1", got)
	}

	if preempt.Count() != 0 {
		t.Fatalf("preempt_disable_count = %d after Dispatch, want 0", preempt.Count())
	}

	if preempt.NestDepth() != 0 {
		t.Fatalf("nested_interrupts_depth = %d after Dispatch, want 0", preempt.NestDepth())
	}
}

func TestDispatchInstallsHandlerAndClearsMask(t *testing.T) {
	bus := NewSimPorts()
	pic := NewPIC(bus)
	pic.Remap(32, 40)
	preempt := NewPreemption()
	tasks := NewTaskManager()
	d := NewDispatcher(pic, preempt, tasks, 32)

	if !pic.Masked(1) {
		t.Fatalf("line 1 unmasked before InstallHandler")
	}

	called := 0
	d.InstallHandler(1, func(irq uint8, r *InterruptFrame) int {
		called++
		return 0
	})

	if pic.Masked(1) {
		t.Fatalf("line 1 still masked after InstallHandler")
	}

	bus.SetISR(1 << 1)
	d.Dispatch(33, &InterruptFrame{}, true, nil, nil)

	if called != 1 {
		t.Fatalf("handler called %d times, want 1", called)
	}
}

func TestDispatchSkipsSpuriousWithoutCallingHandler(t *testing.T) {
	bus := NewSimPorts()
	pic := NewPIC(bus)
	pic.Remap(32, 40)
	preempt := NewPreemption()
	tasks := NewTaskManager()
	d := NewDispatcher(pic, preempt, tasks, 32)

	called := false
	d.InstallHandler(7, func(irq uint8, r *InterruptFrame) int {
		called = true
		return 0
	})

	bus.SetISR(0) // line 7's ISR bit clear: spurious

	d.Dispatch(39, &InterruptFrame{}, true, nil, nil)

	if called {
		t.Fatalf("handler ran for a spurious IRQ7")
	}

	if pic.SpuriousCount() != 1 {
		t.Fatalf("SpuriousCount() = %d, want 1", pic.SpuriousCount())
	}
}

// countingScheduler wraps a *TaskManager to count ScheduleOutsideInterrupt
// invocations, for asserting the bottom-half reschedule-eligibility rule.
type countingScheduler struct {
	*TaskManager
	count int
}

func (c *countingScheduler) ScheduleOutsideInterrupt() { c.count++ }

func TestDispatchReschedulesOnlyWhenOutermost(t *testing.T) {
	bus := NewSimPorts()
	pic := NewPIC(bus)
	pic.Remap(32, 40)
	preempt := NewPreemption()
	sched := &countingScheduler{TaskManager: NewTaskManager()}
	d := NewDispatcher(pic, preempt, sched, 32)

	d.InstallHandler(1, func(irq uint8, r *InterruptFrame) int { return 1 })
	bus.SetISR(1 << 1)

	d.Dispatch(33, &InterruptFrame{}, true, nil, nil)

	if sched.count != 1 {
		t.Fatalf("ScheduleOutsideInterrupt called %d times for an outermost dispatch, want 1", sched.count)
	}

	if preempt.Count() != 0 {
		t.Fatalf("preempt_disable_count = %d after outermost dispatch, want 0", preempt.Count())
	}

	// Simulate a nested dispatch: preemption already disabled by an outer
	// caller before Dispatch runs, so this dispatch must not be the one
	// that reschedules (it cannot know whether the outer caller is done).
	preempt.Disable()
	d.Dispatch(33, &InterruptFrame{}, true, nil, nil)
	preempt.Enable()

	if sched.count != 1 {
		t.Fatalf("ScheduleOutsideInterrupt called %d times across a nested dispatch, want still 1", sched.count)
	}

	if preempt.Count() != 0 {
		t.Fatalf("preempt_disable_count = %d after balanced nested dispatch, want 0", preempt.Count())
	}
}

func TestDispatchPanicsIfInterruptsAlreadyEnabled(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Dispatch with hwInterruptsDisabled=false did not panic")
		}
	}()

	bus := NewSimPorts()
	pic := NewPIC(bus)
	pic.Remap(32, 40)
	d := NewDispatcher(pic, NewPreemption(), NewTaskManager(), 32)

	d.Dispatch(33, &InterruptFrame{}, false, nil, nil)
}
