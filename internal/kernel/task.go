package kernel

import "sync"

// TaskState is one of the states a Task can be in.
type TaskState uint8

const (
	TaskRunning TaskState = iota
	TaskRunnable
	TaskSleeping
	TaskZombie
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskRunnable:
		return "runnable"
	case TaskSleeping:
		return "sleeping"
	case TaskZombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// WaitKind tags the resource a sleeping task is parked on. KMUTEX is the
// only kind the core itself produces; it is kept as a tagged variant
// rather than a bare pointer so waking a targeted waiter needs no runtime
// type assertion.
type WaitKind uint8

const (
	WaitNone WaitKind = iota
	WaitKMutex
)

// WaitObject is the (kind, target) pair attached to a sleeping task.
// MutexID is only meaningful when Kind == WaitKMutex.
type WaitObject struct {
	Kind    WaitKind
	MutexID uint64
}

// Task is an opaque task identity. The currently running task is modeled
// here as an explicit parameter rather than implicit global state; Task
// itself stays a plain, comparable identity so callers can hold a *Task
// across goroutines the way the original core holds a task pointer across
// an interrupt.
type Task struct {
	id uint64

	mu    sync.Mutex
	state TaskState
	wobj  WaitObject
	park  chan struct{}
}

// NewTask creates a runnable task with the given identity. The id is
// caller-supplied (typically a PID from an external scheduler); the core
// does not allocate task identities.
func NewTask(id uint64) *Task {
	return &Task{id: id, state: TaskRunnable}
}

// ID returns the task's identity.
func (t *Task) ID() uint64 { return t.id }

// State returns the task's current state.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// WaitObj returns a copy of the task's current wait object.
func (t *Task) WaitObj() WaitObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.wobj
}

// setState transitions the task's state under its own lock. It is exported
// within the package only; external callers go through Scheduler.
func (t *Task) setState(s TaskState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// setWaitObj assigns the task's wait object.
func (t *Task) setWaitObj(w WaitObject) {
	t.mu.Lock()
	t.wobj = w
	t.mu.Unlock()
}

// resetWaitObj clears the task's wait object.
func (t *Task) resetWaitObj() {
	t.mu.Lock()
	t.wobj = WaitObject{}
	t.mu.Unlock()
}

// parkSelf blocks the calling goroutine until wake is called for this
// task. It stands in for the real kernel's yield(): the task's own
// goroutine calls this after the scheduler has recorded it as sleeping.
func (t *Task) parkSelf() {
	t.mu.Lock()
	if t.state != TaskSleeping {
		// Already woken before parking; there is nothing to wait for.
		t.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	t.park = ch
	t.mu.Unlock()

	<-ch
}

// wake releases a goroutine blocked in parkSelf, if any, and marks the task
// runnable. If the task has not parked yet (it was marked sleeping but
// has not reached parkSelf), the runnable state makes that later parkSelf
// return at once.
func (t *Task) wake() {
	t.mu.Lock()
	if t.park != nil {
		close(t.park)
		t.park = nil
	}
	t.state = TaskRunnable
	t.mu.Unlock()
}

// Scheduler is the external collaborator the core depends on: task
// lookup/transition, the ordered sleeping_tasks collection, and the two
// suspension entry points (yield, and the bottom-half "outside interrupt"
// scheduler invocation). The kernel mutex and the IRQ dispatcher are
// written against this interface rather than a concrete scheduler, since
// run-queue and priority policy is a separate concern from mutual
// exclusion and interrupt dispatch.
type Scheduler interface {
	// Current returns the task the caller is running as.
	Current() *Task
	// ChangeState transitions a task's state.
	ChangeState(t *Task, s TaskState)
	// SaveState records the interrupt-time register frame against a task;
	// only meaningful when called from the IRQ dispatcher's bottom half.
	SaveState(t *Task, regs *InterruptFrame)
	// Sleeping returns a stable-order snapshot of sleeping_tasks, in the
	// order tasks were added.
	Sleeping() []*Task
	// AddSleeping inserts t at the tail of sleeping_tasks.
	AddSleeping(t *Task)
	// RemoveSleeping removes t from sleeping_tasks, if present.
	RemoveSleeping(t *Task)
	// Yield suspends the current task until it is woken elsewhere.
	Yield(t *Task)
	// ScheduleOutsideInterrupt is the bottom-half entry point the IRQ
	// dispatcher invokes once servicing completes, when preemption is
	// allowed.
	ScheduleOutsideInterrupt()
}

// TaskManager is the default Scheduler implementation: an ordered sleeping
// list plus a single "current task" binding supplied explicitly by
// callers. It is intentionally simple — real scheduling policy (run
// queues, priorities) belongs to an external collaborator; TaskManager
// only has to honor the sleep/wake contract the mutex and IRQ dispatcher
// rely on.
type TaskManager struct {
	mu       sync.Mutex
	sleeping []*Task
	current  *Task
}

// NewTaskManager returns an empty TaskManager. SetCurrent must be called
// before Current is meaningful; until then Current returns nil.
func NewTaskManager() *TaskManager {
	return &TaskManager{}
}

// SetCurrent binds the task the calling goroutine runs as. There is no
// true goroutine-local storage in Go, so this binding is maintained by
// whichever single goroutine is impersonating "the CPU" at a time; tests
// that run multiple tasks concurrently pass *Task explicitly instead of
// relying on Current (see Mutex's Lock/Unlock, which take the task as a
// parameter).
func (tm *TaskManager) SetCurrent(t *Task) {
	tm.mu.Lock()
	tm.current = t
	tm.mu.Unlock()
}

// Current returns the task most recently bound with SetCurrent.
func (tm *TaskManager) Current() *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return tm.current
}

// ChangeState transitions a task's state.
func (tm *TaskManager) ChangeState(t *Task, s TaskState) {
	t.setState(s)
}

// SaveState is a no-op placeholder: register-frame persistence belongs to
// an external task-creation/context-switch machinery this package does
// not implement. It exists so the IRQ dispatcher has something to call
// when it invokes the scheduler's bottom half.
func (tm *TaskManager) SaveState(t *Task, regs *InterruptFrame) {
	_ = t
	_ = regs
}

// Sleeping returns a snapshot of the sleeping-task list in insertion
// order, so a traversal made with preemption disabled sees a consistent
// view.
func (tm *TaskManager) Sleeping() []*Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	out := make([]*Task, len(tm.sleeping))
	copy(out, tm.sleeping)

	return out
}

// AddSleeping appends t to sleeping_tasks.
func (tm *TaskManager) AddSleeping(t *Task) {
	tm.mu.Lock()
	tm.sleeping = append(tm.sleeping, t)
	tm.mu.Unlock()
}

// RemoveSleeping removes t from sleeping_tasks if present.
func (tm *TaskManager) RemoveSleeping(t *Task) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for i, s := range tm.sleeping {
		if s == t {
			tm.sleeping = append(tm.sleeping[:i], tm.sleeping[i+1:]...)
			return
		}
	}
}

// Yield parks the calling goroutine until t is woken by a mutex unlock (or
// any other caller of its internal wake). This is the cooperative
// suspension point the mutex's Lock uses to block a waiter.
func (tm *TaskManager) Yield(t *Task) {
	t.parkSelf()
}

// ScheduleOutsideInterrupt is a no-op in this host reimplementation: there
// is no real run queue to pick from, since Go's own scheduler is already
// choosing which goroutine-task runs next. It is kept so the IRQ
// dispatcher's bottom-half invocation has a call site to exercise in
// tests (e.g. counting invocations).
func (tm *TaskManager) ScheduleOutsideInterrupt() {}
