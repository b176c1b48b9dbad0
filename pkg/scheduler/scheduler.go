// Package scheduler implements the per-node, single-threaded cooperative
// task runtime: many goroutines act as activation records, but a single
// "baton" token (one buffered channel per task) ensures only the task
// currently holding it ever executes node-local user code. This is what
// lets the rest of the node (PendingTable, the user service object) go
// without any locking of its own: the baton supplies the serialization a
// literal single OS thread would have given for free.
package scheduler

import (
	"context"
	"errors"
	"sync"
)

// ErrShutdown is the distinguished value EventLoop's main-loop task returns
// to unwind the scheduler: a "poison message" control-flow signal, not a
// real failure. Start recognizes it, force-wakes every still-suspended
// Condition, drains remaining tasks, and returns nil to its own caller.
var ErrShutdown = errors.New("scheduler: shutdown")

type task struct {
	resume chan struct{} // buffered 1: the baton handoff channel for this task
	owner  *Scheduler
}

func newTask() *task { return &task{resume: make(chan struct{}, 1)} }

type ctxKey struct{}

func withTask(ctx context.Context, t *task) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

func taskFromContext(ctx context.Context) (*task, bool) {
	t, ok := ctx.Value(ctxKey{}).(*task)
	return t, ok
}

// Scheduler is a single node's cooperative task runtime.
type Scheduler struct {
	mu         sync.Mutex
	ready      []*task
	live       int
	shutdown   bool
	conditions map[*Condition]struct{}
	allDone    chan struct{}
	doneOnce   sync.Once
}

// New creates an idle Scheduler. Call Start to take over the current
// goroutine and begin running tasks.
func New() *Scheduler {
	return NewWithCapacity(0)
}

// NewWithCapacity is New, but preallocates the ready queue to readyCap.
// A binding layer that expects many concurrently-spawned dispatch tasks
// per node can use this to avoid reallocation churn; it changes nothing
// about scheduling order or behavior.
func NewWithCapacity(readyCap int) *Scheduler {
	return &Scheduler{
		ready:      make([]*task, 0, readyCap),
		conditions: make(map[*Condition]struct{}),
		allDone:    make(chan struct{}),
	}
}

// FromContext reports whether ctx is running inside some Scheduler's task
// (i.e. whether the calling goroutine currently holds that scheduler's
// baton), and if so returns it. ClientStub uses this to tell a re-entrant
// caller (running inside a node worker) from a plain blocking caller.
func FromContext(ctx context.Context) (*Scheduler, bool) {
	t, ok := taskFromContext(ctx)
	if !ok {
		return nil, false
	}
	return t.owner, true
}

func (t *task) withOwner(s *Scheduler) *task { t.owner = s; return t }

// Start takes over the calling goroutine as the first task, running entry
// until it returns. If entry returns ErrShutdown, every task still
// suspended on a Condition is force-woken before Start returns nil;
// any other error propagates to the caller once every spawned task has
// finished (a spawned task that is mid-flight when entry returns is still
// drained, so nothing is silently abandoned).
func (s *Scheduler) Start(parent context.Context, entry func(ctx context.Context) error) error {
	t := newTask().withOwner(s)
	s.mu.Lock()
	s.live = 1
	s.mu.Unlock()

	ctx := withTask(parent, t)
	err := entry(ctx)

	if errors.Is(err, ErrShutdown) {
		s.forceShutdown()
		err = nil
	}
	s.finishTask(t)
	<-s.allDone
	return err
}

// Spawn adds a new task to the ready set. fn runs with a context carrying
// this task's identity once it is scheduled.
func (s *Scheduler) Spawn(ctx context.Context, fn func(ctx context.Context)) {
	t := newTask().withOwner(s)
	s.mu.Lock()
	s.live++
	s.ready = append(s.ready, t)
	s.mu.Unlock()

	go func() {
		<-t.resume
		fn(withTask(ctx, t))
		s.finishTask(t)
	}()
}

// Yield voluntarily returns control to the scheduler; the calling task
// re-enters the ready set and resumes once its turn comes back around.
func (s *Scheduler) Yield(ctx context.Context) {
	t, ok := taskFromContext(ctx)
	if !ok {
		return
	}
	s.handOff(t, true)
	<-t.resume
}

// handOff picks the next ready task (appending me first if rejoin is set)
// and hands it the baton. If there is nothing else ready, me (when
// rejoining) simply gets the baton right back with no real suspension.
func (s *Scheduler) handOff(me *task, rejoin bool) {
	s.mu.Lock()
	if rejoin && me != nil {
		s.ready = append(s.ready, me)
	}
	var next *task
	if len(s.ready) > 0 {
		next = s.ready[0]
		s.ready = s.ready[1:]
	}
	s.mu.Unlock()
	if next != nil {
		next.resume <- struct{}{}
	}
}

func (s *Scheduler) finishTask(t *task) {
	s.mu.Lock()
	s.live--
	done := s.live == 0
	var next *task
	if len(s.ready) > 0 {
		next = s.ready[0]
		s.ready = s.ready[1:]
	}
	s.mu.Unlock()
	if next != nil {
		next.resume <- struct{}{}
	}
	if done {
		s.doneOnce.Do(func() { close(s.allDone) })
	}
}

func (s *Scheduler) registerCondition(c *Condition) {
	s.mu.Lock()
	s.conditions[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Scheduler) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// forceShutdown wakes every task currently parked on any Condition owned by
// this scheduler, so a node that unwinds mid-call leaves nothing leaked.
func (s *Scheduler) forceShutdown() {
	s.mu.Lock()
	s.shutdown = true
	var woken []*task
	for c := range s.conditions {
		c.mu.Lock()
		woken = append(woken, c.waiters...)
		c.waiters = nil
		c.mu.Unlock()
	}
	s.ready = append(s.ready, woken...)
	s.mu.Unlock()
}
