package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MutexFlag is the bit flag set a kernel mutex accepts.
type MutexFlag uint32

const (
	// MutexRecursive marks a mutex as reentrant for its owner.
	MutexRecursive MutexFlag = 1 << 0
)

var nextMutexID uint64 // monotonic, shared across all Mutex values in the process

// allocMutexID performs an atomic fetch-and-add with a CAS retry loop
// rather than reaching straight for atomic.AddUint64.
func allocMutexID() uint64 {
	for {
		old := atomic.LoadUint64(&nextMutexID)
		next := old + 1

		if next == 0 {
			// 64-bit wraparound is not a realistic failure mode, but
			// refuse rather than hand back id 0 (the destroyed/invalid
			// sentinel) in case it ever happens.
			panic("kernel: mutex id counter exhausted")
		}

		if atomic.CompareAndSwapUint64(&nextMutexID, old, next) {
			return next
		}
	}
}

// Mutex is a kernel-level mutex: mutual exclusion between tasks with
// FIFO-adjacent wake-up of exactly one waiter on unlock.
//
// Mutex does not embed a Scheduler; one is passed to every blocking
// operation instead, so the calling task is always explicit rather than
// read from implicit global state. This also makes the mutex trivially
// reusable across independently scheduled task pools in tests.
type Mutex struct {
	mu sync.Mutex // protects the fields below against concurrent Lock/Unlock from different goroutine-tasks

	id        uint64
	flags     MutexFlag
	ownerTask *Task
	lockCount uint32
	preempt   *Preemption
}

// NewMutex allocates and initializes a mutex. preempt is the shared
// preemption counter the caller's kernel instance owns; lock/unlock
// disable and enable it around their critical sections.
func NewMutex(preempt *Preemption, flags MutexFlag) *Mutex {
	return &Mutex{id: allocMutexID(), flags: flags, preempt: preempt}
}

// ID returns the mutex's non-zero identity, or 0 if it has been destroyed.
func (m *Mutex) ID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.id
}

// Recursive reports whether MutexRecursive is set.
func (m *Mutex) Recursive() bool {
	return m.flags&MutexRecursive != 0
}

// Destroy zeroes the mutex so that id == 0 flags it as invalid. Using a
// destroyed mutex afterward is undefined behavior; this implementation
// does not attempt to detect every such misuse beyond the id checks
// Lock, TryLock and Unlock perform.
func (m *Mutex) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.id = 0
	m.flags = 0
	m.ownerTask = nil
	m.lockCount = 0
}

// IsHeldByCurrent reports owner_task == current.
func (m *Mutex) IsHeldByCurrent(current *Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ownerTask == current
}

// Owner returns the current owner, or nil if free.
func (m *Mutex) Owner() *Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ownerTask
}

// Lock acquires the mutex for the calling task `self`, using sched as the
// Scheduler collaborator for state transitions and sleep/wake. It must not
// be called from an IRQ handler — asserted via preempt.InIRQ(), which
// panics rather than returning an error, since this is a precondition
// violation rather than a recoverable failure.
func (m *Mutex) Lock(self *Task, sched Scheduler) {
	if m.preempt.InIRQ() {
		panic("kernel: mutex lock called from IRQ context")
	}

	m.preempt.Disable()

	m.mu.Lock()
	if m.id == 0 {
		m.mu.Unlock()
		m.preempt.Enable()
		panic("kernel: lock on destroyed mutex")
	}

	switch {
	case m.ownerTask == nil:
		m.ownerTask = self
		if m.Recursive() {
			m.lockCount = 1
		}
		m.mu.Unlock()
		m.preempt.Enable()

		return

	case m.Recursive() && m.ownerTask == self:
		m.lockCount++
		m.mu.Unlock()
		m.preempt.Enable()

		return

	case m.ownerTask == self:
		m.mu.Unlock()
		m.preempt.Enable()
		panic("kernel: non-recursive mutex relocked by its own owner")

	default:
		self.setWaitObj(WaitObject{Kind: WaitKMutex, MutexID: m.id})
		sched.ChangeState(self, TaskSleeping)
		sched.AddSleeping(self)
		m.mu.Unlock()
		m.preempt.Enable()

		sched.Yield(self)

		// Woken: unlock() has already made self the owner before
		// marking it runnable. Re-validate that post-condition before
		// returning.
		if !m.IsHeldByCurrent(self) {
			panic("kernel: mutex waiter woke without owning the mutex")
		}

		if m.Recursive() {
			m.mu.Lock()
			count := m.lockCount
			m.mu.Unlock()

			if count != 1 {
				panic("kernel: recursive mutex woke with lock_count != 1")
			}
		}

		return
	}
}

// TryLock implements try_lock(m): never sleeps, succeeds iff the mutex was
// free or already recursively held by self.
func (m *Mutex) TryLock(self *Task) bool {
	if m.preempt.InIRQ() {
		panic("kernel: mutex try_lock called from IRQ context")
	}

	m.preempt.Disable()
	defer m.preempt.Enable()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id == 0 {
		panic("kernel: try_lock on destroyed mutex")
	}

	switch {
	case m.ownerTask == nil:
		m.ownerTask = self
		if m.Recursive() {
			m.lockCount = 1
		}

		return true

	case m.Recursive() && m.ownerTask == self:
		m.lockCount++

		return true

	default:
		return false
	}
}

// Unlock implements unlock(m): releases the mutex (or decrements the
// recursion counter) and, if waiters remain, transfers ownership to the
// first task in sleeping_tasks whose wait object targets this mutex.
func (m *Mutex) Unlock(self *Task, sched Scheduler) {
	if m.preempt.InIRQ() {
		panic("kernel: mutex unlock called from IRQ context")
	}

	m.preempt.Disable()
	defer m.preempt.Enable()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id == 0 {
		panic("kernel: unlock on destroyed mutex")
	}

	if m.ownerTask != self {
		panic(fmt.Sprintf("kernel: unlock called by non-owner task %d", self.ID()))
	}

	if m.Recursive() && m.lockCount > 1 {
		m.lockCount--
		return
	}

	m.ownerTask = nil
	m.lockCount = 0

	for _, waiter := range sched.Sleeping() {
		w := waiter.WaitObj()
		if w.Kind == WaitKMutex && w.MutexID == m.id {
			m.ownerTask = waiter
			if m.Recursive() {
				m.lockCount = 1
			}

			waiter.resetWaitObj()
			sched.RemoveSleeping(waiter)
			sched.ChangeState(waiter, TaskRunnable)
			waiter.wake()

			return
		}
	}
}
