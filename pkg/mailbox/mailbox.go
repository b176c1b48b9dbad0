// Package mailbox implements the unbounded, multi-producer/single-consumer
// message queue that every node is addressed through. A Handle is the small,
// copyable, equality-comparable value that carries a reference to one such
// queue across goroutines and, where needed, across an encoded wire.
package mailbox

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
)

// Sentinel is the reserved Command.ID meaning "no reply expected via the
// pending table; the caller is not re-entrant and will block-receive".
const Sentinel = ^uint64(0)

// Command is an inbound request record. Immutable once sent.
type Command struct {
	Origin  Handle
	ID      uint64
	Method  string
	Payload []byte
}

// Response is a reply record. ID is copied from the originating Command.
type Response struct {
	Success bool
	ID      uint64
	Payload []byte
}

// OwnerTerminated is the poison message sent by an owner Handle's teardown;
// it causes the worker's main loop to exit after the current iteration.
type OwnerTerminated struct{}

// Message is the tagged union delivered through a mailbox: *Command,
// *Response, or OwnerTerminated.
type Message any

// ErrClosed is returned by Recv once the mailbox has been closed and
// drained.
var ErrClosed = fmt.Errorf("mailbox: closed")

type core struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Message
	closed bool
	id     uint64
}

var coreSeq uint64

func newCore() *core {
	c := &core{id: atomic.AddUint64(&coreSeq, 1)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Handle is a small, copyable, equality-comparable reference to a mailbox.
// Two Handles compare equal iff they refer to the same underlying queue.
type Handle struct{ c *core }

// New creates a fresh, empty mailbox and returns a Handle to it.
func New() Handle { return Handle{c: newCore()} }

// IsZero reports whether h was never assigned a mailbox.
func (h Handle) IsZero() bool { return h.c == nil }

// ID returns the mailbox's process-local monotonic id, for log correlation
// only; it carries no addressing meaning and two processes may assign the
// same id to unrelated mailboxes.
func (h Handle) ID() uint64 { return h.c.id }

// Send enqueues msg. Send never blocks: the queue is unbounded. Sending to a
// closed mailbox is silently dropped, matching the "dead mailbox" half of
// the owner-teardown contract.
func (h Handle) Send(msg Message) {
	h.c.mu.Lock()
	if h.c.closed {
		h.c.mu.Unlock()
		return
	}
	h.c.queue = append(h.c.queue, msg)
	h.c.mu.Unlock()
	h.c.cond.Broadcast()
}

// Close marks the mailbox dead: further Sends are dropped and a pending or
// future Recv observes ErrClosed once the queue drains.
func (h Handle) Close() {
	h.c.mu.Lock()
	h.c.closed = true
	h.c.mu.Unlock()
	h.c.cond.Broadcast()
}

// Recv blocks the calling goroutine until exactly one message arrives, the
// mailbox closes, or ctx is done.
func (h Handle) Recv(ctx context.Context) (Message, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()

	canceled := false
	if ctx != nil && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			h.c.mu.Lock()
			canceled = true
			h.c.mu.Unlock()
			h.c.cond.Broadcast()
		})
		defer stop()
	}

	for len(h.c.queue) == 0 {
		if h.c.closed {
			return nil, ErrClosed
		}
		if canceled {
			return nil, ctx.Err()
		}
		h.c.cond.Wait()
	}
	msg := h.c.queue[0]
	h.c.queue = h.c.queue[1:]
	return msg, nil
}

// Handlers groups the per-variant callbacks for RecvMatch.
type Handlers struct {
	OnOwnerTerminated func()
	OnCommand         func(*Command)
	OnResponse        func(*Response)
}

// RecvMatch blocks for one message and dispatches it to the handler that
// matches its variant.
func (h Handle) RecvMatch(ctx context.Context, hdl Handlers) error {
	msg, err := h.Recv(ctx)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *Command:
		hdl.OnCommand(m)
	case *Response:
		hdl.OnResponse(m)
	case OwnerTerminated:
		hdl.OnOwnerTerminated()
	default:
		return fmt.Errorf("mailbox: unexpected message type %T", m)
	}
	return nil
}

// handle registry: lets a Handle be encoded into a byte payload and carried
// inside a Command/Response, so one node can hand another a reference to a
// third mailbox (or itself) as an ordinary call argument. This is a
// process-local id->pointer table, not a string-keyed node registry; naming
// and discovery of nodes is left to the binding layer.
var (
	registryMu sync.Mutex
	registry   = map[uint64]*core{}
)

// Encode returns an 8-byte wire form of h, registering it so DecodeHandle
// can resolve it back to the same core within this process.
func (h Handle) Encode() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, h.c.id)
	registryMu.Lock()
	registry[h.c.id] = h.c
	registryMu.Unlock()
	return b
}

// DecodeHandle resolves a Handle previously produced by Encode.
func DecodeHandle(b []byte) (Handle, error) {
	if len(b) != 8 {
		return Handle{}, fmt.Errorf("mailbox: malformed handle encoding (%d bytes)", len(b))
	}
	id := binary.BigEndian.Uint64(b)
	registryMu.Lock()
	c, ok := registry[id]
	registryMu.Unlock()
	if !ok {
		return Handle{}, fmt.Errorf("mailbox: unknown handle id %d", id)
	}
	return Handle{c: c}, nil
}
