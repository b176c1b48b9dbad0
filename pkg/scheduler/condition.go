package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errNoScheduler is a programmer error: Wait was called from a goroutine
// that never entered this Scheduler's Start/Spawn.
var errNoScheduler = errors.New("scheduler: condition used outside a scheduled task")

// Condition suspends the current task until some other task calls Notify
// or NotifyAll on the same Condition. Conditions are private to one
// Scheduler and need no external mutex: the baton already guarantees that
// only one task ever touches a Condition's waiter list at a time.
type Condition struct {
	s       *Scheduler
	mu      sync.Mutex
	waiters []*task
}

// NewCondition creates a Condition owned by s. s force-wakes it on
// shutdown.
func (s *Scheduler) NewCondition() *Condition {
	c := &Condition{s: s}
	s.registerCondition(c)
	return c
}

// Wait suspends the calling task until Notify/NotifyAll wakes it or the
// scheduler is shut down, in which case it returns ErrShutdown.
func (c *Condition) Wait(ctx context.Context) error {
	t, ok := taskFromContext(ctx)
	if !ok {
		return errNoScheduler
	}
	c.mu.Lock()
	c.waiters = append(c.waiters, t)
	c.mu.Unlock()

	c.s.handOff(t, false)
	<-t.resume

	if c.s.isShutdown() {
		return ErrShutdown
	}
	return nil
}

// WaitTimeout behaves like Wait but returns no later than d has elapsed.
// notified reports whether Notify/NotifyAll woke the task (false on a
// timeout). err is non-nil only if the scheduler shut down while waiting.
func (c *Condition) WaitTimeout(ctx context.Context, d time.Duration) (notified bool, err error) {
	t, ok := taskFromContext(ctx)
	if !ok {
		return false, errNoScheduler
	}
	c.mu.Lock()
	c.waiters = append(c.waiters, t)
	c.mu.Unlock()

	var timedOut boolFlag
	timer := time.AfterFunc(d, func() {
		if c.removeWaiter(t) {
			timedOut.set()
			c.s.readyTask(t)
		}
	})

	c.s.handOff(t, false)
	<-t.resume
	timer.Stop()

	if c.s.isShutdown() {
		return false, ErrShutdown
	}
	return !timedOut.get(), nil
}

// removeWaiter removes t from the waiter list if it is still there,
// reporting whether it was found (i.e. Notify had not already claimed it).
func (c *Condition) removeWaiter(t *task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == t {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Notify wakes exactly one waiting task (if any) and yields, so the
// notifier never monopolizes the scheduler.
func (c *Condition) Notify(ctx context.Context) {
	c.mu.Lock()
	var woken *task
	if len(c.waiters) > 0 {
		woken = c.waiters[0]
		c.waiters = c.waiters[1:]
	}
	c.mu.Unlock()
	if woken != nil {
		c.s.readyTask(woken)
	}
	c.s.Yield(ctx)
}

// NotifyAll wakes every waiting task and yields.
func (c *Condition) NotifyAll(ctx context.Context) {
	c.mu.Lock()
	woken := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, t := range woken {
		c.s.readyTask(t)
	}
	c.s.Yield(ctx)
}

// readyTask moves t into the scheduler's ready queue without granting it
// the baton immediately; it must still wait its turn via a future handOff.
func (s *Scheduler) readyTask(t *task) {
	s.mu.Lock()
	s.ready = append(s.ready, t)
	s.mu.Unlock()
}

// boolFlag is a tiny race-free bool shared between a timer callback
// goroutine and the waiting task.
type boolFlag struct {
	mu sync.Mutex
	v  bool
}

func (b *boolFlag) set()      { b.mu.Lock(); b.v = true; b.mu.Unlock() }
func (b *boolFlag) get() bool { b.mu.Lock(); defer b.mu.Unlock(); return b.v }
