package kernel

import "testing"

func TestPreemptionDisableEnableBalanced(t *testing.T) {
	p := NewPreemption()

	if p.Disabled() {
		t.Fatalf("fresh Preemption reports disabled")
	}

	p.Disable()
	p.Disable()

	if p.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", p.Count())
	}

	p.Enable()

	if !p.Disabled() {
		t.Fatalf("Disabled() = false after one Enable of two Disables")
	}

	p.Enable()

	if p.Disabled() {
		t.Fatalf("Disabled() = true after balanced Disable/Enable")
	}
}

func TestPreemptionEnableImbalancePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Enable() with no matching Disable() did not panic")
		}
	}()

	NewPreemption().Enable()
}

func TestPreemptionNestStack(t *testing.T) {
	p := NewPreemption()

	if p.InIRQ() {
		t.Fatalf("fresh Preemption reports InIRQ")
	}

	p.PushNested(32)
	p.PushNested(33)

	if p.NestDepth() != 2 {
		t.Fatalf("NestDepth() = %d, want 2", p.NestDepth())
	}

	if !p.InIRQ() {
		t.Fatalf("InIRQ() = false with nonzero nest depth")
	}

	p.PopNested()
	p.PopNested()

	if p.InIRQ() {
		t.Fatalf("InIRQ() = true after popping every nested entry")
	}
}

func TestPreemptionPopNestedUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("PopNested() with an empty stack did not panic")
		}
	}()

	NewPreemption().PopNested()
}
