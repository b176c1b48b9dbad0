package fixtures

import (
	"context"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/mailbox"
	"github.com/urands/meshcall/pkg/node"
)

// CycleService is the scenario-4 fixture: Call(n, v) returns v once n
// reaches zero, otherwise forwards to whichever node SetNext last wired
// in as this node's successor. Wiring three of these into a ring and
// calling the first is the harness's canonical re-entrant-cycle test:
// each node is simultaneously servicing the inbound call from its
// predecessor and suspended awaiting the reply from its successor.
type CycleService struct {
	next mailbox.Handle
}

func (s *CycleService) SetNext(next mailbox.Handle) error {
	s.next = next
	return nil
}

func (s *CycleService) Call(ctx context.Context, n, v int) (int, error) {
	if n == 0 {
		return v, nil
	}
	payload, err := encodeArgs(callArgs{N: n - 1, V: v + n})
	if err != nil {
		return 0, err
	}
	reply, err := node.Call(ctx, s.next, callMethodID, payload)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(reply, &result); err != nil {
		return 0, err
	}
	return result, nil
}

type callArgs struct{ N, V int }
type setNextArgs struct{ Next []byte }

var (
	callMethodID    = descriptor.Arity("call", 2)
	setNextMethodID = descriptor.Arity("setnext", 1)
)

// CycleTable builds the dispatch descriptor table for CycleService.
func CycleTable() *descriptor.Table {
	return descriptor.NewTable().
		Register(descriptor.TypedMethod(callMethodID, argCodec,
			func(ctx context.Context, service any, a callArgs) (int, error) {
				return service.(*CycleService).Call(ctx, a.N, a.V)
			})).
		Register(descriptor.TypedMethod(setNextMethodID, argCodec,
			func(ctx context.Context, service any, a setNextArgs) (any, error) {
				next, err := mailbox.DecodeHandle(a.Next)
				if err != nil {
					return nil, err
				}
				return nil, service.(*CycleService).SetNext(next)
			}))
}

// SpawnCycle spawns a node running a fresh, unwired CycleService.
func SpawnCycle() *node.Handle {
	return node.Spawn(CycleTable(), func() (any, error) { return &CycleService{}, nil })
}

// CycleClient is the generated client stub for CycleService.
type CycleClient struct{ h *node.Handle }

func NewCycleClient(h *node.Handle) *CycleClient { return &CycleClient{h: h} }

func (c *CycleClient) Call(ctx context.Context, n, v int) (int, error) {
	payload, err := encodeArgs(callArgs{N: n, V: v})
	if err != nil {
		return 0, err
	}
	reply, err := node.Call(ctx, c.h.Mailbox(), callMethodID, payload)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(reply, &result); err != nil {
		return 0, err
	}
	return result, nil
}

func (c *CycleClient) SetNext(ctx context.Context, next mailbox.Handle) error {
	payload, err := encodeArgs(setNextArgs{Next: next.Encode()})
	if err != nil {
		return err
	}
	_, err = node.Call(ctx, c.h.Mailbox(), setNextMethodID, payload)
	return err
}
