// Package pending implements the per-node table that maps an outstanding
// outbound request id to the Condition a re-entrant caller is suspended on,
// plus the slot it will find its reply in once woken.
package pending

import (
	"context"
	"fmt"

	"github.com/urands/meshcall/pkg/mailbox"
	"github.com/urands/meshcall/pkg/scheduler"
)

// Slot is one entry in the Table. It is busy from the moment a client stub
// claims its index until it consumes the reply; only the event loop writes
// reply, and only while the owning task is suspended on cond.
type Slot struct {
	cond  *scheduler.Condition
	busy  bool
	reply *mailbox.Response
}

// Table is an ordered, index-addressed collection of Slots that grows by
// appending and never shrinks during a node's lifetime. The id transmitted
// on the wire always equals the slot's index.
type Table struct {
	sched *scheduler.Scheduler
	slots []*Slot
}

// New creates a Table whose Conditions are owned by sched, so that a node
// shutdown force-wakes any request still outstanding when it happens.
func New(sched *scheduler.Scheduler) *Table {
	return NewWithCapacity(sched, 0)
}

// NewWithCapacity is New, but preallocates the slot slice to capHint. A
// binding layer that expects many concurrent outbound calls per node can
// use this to avoid reallocation churn; it changes nothing about slot
// reuse or addressing.
func NewWithCapacity(sched *scheduler.Scheduler, capHint int) *Table {
	return &Table{sched: sched, slots: make([]*Slot, 0, capHint)}
}

// Allocate returns the smallest index whose slot is not busy, appending a
// new slot if none is free, and marks the chosen slot busy.
func (t *Table) Allocate() uint64 {
	for i, s := range t.slots {
		if !s.busy {
			s.busy = true
			s.reply = nil
			return uint64(i)
		}
	}
	s := &Slot{cond: t.sched.NewCondition(), busy: true}
	t.slots = append(t.slots, s)
	return uint64(len(t.slots) - 1)
}

// Complete stores resp into the slot at index id and notifies its
// condition. It must only be called by the event loop. A reply to an id
// that is not busy is a protocol violation.
func (t *Table) Complete(ctx context.Context, id uint64, resp *mailbox.Response) error {
	if id >= uint64(len(t.slots)) || !t.slots[id].busy {
		return fmt.Errorf("pending: reply for id %d is not an outstanding request", id)
	}
	s := t.slots[id]
	s.reply = resp
	s.cond.Notify(ctx)
	return nil
}

// Wait suspends the calling task until the reply for id arrives or the
// node shuts down.
func (t *Table) Wait(ctx context.Context, id uint64) error {
	return t.slots[id].cond.Wait(ctx)
}

// Take reads and clears the reply cell for id, freeing the slot for reuse.
// Called by the client stub immediately after Wait returns.
func (t *Table) Take(id uint64) *mailbox.Response {
	s := t.slots[id]
	r := s.reply
	s.reply = nil
	s.busy = false
	return r
}
