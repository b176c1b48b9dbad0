package fixtures

import (
	"context"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/mailbox"
	"github.com/urands/meshcall/pkg/node"
)

// valueCounter is the shape shared by MasterService and SlaveService: a
// Value() that returns 42 (directly, for the master; by forwarding to the
// master, for a slave) and a Requests() that reports how many times
// Value() has been invoked on that node.
type valueCounter interface {
	Value(ctx context.Context) (int, error)
	Requests() (int, error)
}

var (
	valueMethodID    = descriptor.Arity("value", 0)
	requestsMethodID = descriptor.Arity("requests", 0)
)

// ValueCounterTable builds the shared dispatch descriptor table for any
// valueCounter implementation (scenario 3 uses it for both the master
// and every slave).
func ValueCounterTable() *descriptor.Table {
	return descriptor.NewTable().
		Register(descriptor.TypedMethod(valueMethodID, argCodec,
			func(ctx context.Context, service any, _ any) (int, error) {
				return service.(valueCounter).Value(ctx)
			})).
		Register(descriptor.TypedMethod(requestsMethodID, argCodec,
			func(ctx context.Context, service any, _ any) (int, error) {
				return service.(valueCounter).Requests()
			}))
}

// MasterService is the scenario-3 fan-in target: each Value() call
// increments a local counter and returns a fixed constant.
type MasterService struct {
	requests int
}

func (m *MasterService) Value(ctx context.Context) (int, error) {
	m.requests++
	return 42, nil
}

func (m *MasterService) Requests() (int, error) { return m.requests, nil }

// SlaveService forwards Value() to the master node it was constructed
// with, re-entering the master's dispatch while the slave's own call is
// still suspended: this is the re-entrancy path scenario 3 exercises.
type SlaveService struct {
	master   mailbox.Handle
	requests int
}

func (s *SlaveService) Value(ctx context.Context) (int, error) {
	s.requests++
	payload, err := node.Call(ctx, s.master, valueMethodID, nil)
	if err != nil {
		return 0, err
	}
	var v int
	if err := decodeArgs(payload, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *SlaveService) Requests() (int, error) { return s.requests, nil }

// SpawnMaster spawns a node running a fresh MasterService.
func SpawnMaster() *node.Handle {
	return node.Spawn(ValueCounterTable(), func() (any, error) { return &MasterService{}, nil })
}

// SpawnSlave spawns a node running a fresh SlaveService wired to master.
func SpawnSlave(master *node.Handle) *node.Handle {
	mb := master.Mailbox()
	return node.Spawn(ValueCounterTable(), func() (any, error) { return &SlaveService{master: mb}, nil })
}

// ValueCounterClient is the generated client stub shared by masters and
// slaves; both expose the same two-method interface.
type ValueCounterClient struct{ h *node.Handle }

func NewValueCounterClient(h *node.Handle) *ValueCounterClient { return &ValueCounterClient{h: h} }

func (c *ValueCounterClient) Value(ctx context.Context) (int, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), valueMethodID, nil)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(payload, &result); err != nil {
		return 0, err
	}
	return result, nil
}

func (c *ValueCounterClient) Requests(ctx context.Context) (int, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), requestsMethodID, nil)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(payload, &result); err != nil {
		return 0, err
	}
	return result, nil
}
