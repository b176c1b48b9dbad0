package fixtures

import (
	"context"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/node"
)

// CounterService is the scenario-6 fixture: a single node called through
// two distinct Handles (the owner and an aliased non-owner Handle built
// from the same mailbox reference) to show both observe one serialized
// sequence of increments.
type CounterService struct {
	n int
}

func (c *CounterService) Incr(ctx context.Context) (int, error) {
	c.n++
	return c.n, nil
}

var incrMethodID = descriptor.Arity("incr", 0)

// CounterTable builds the dispatch descriptor table for CounterService.
func CounterTable() *descriptor.Table {
	return descriptor.NewTable().Register(descriptor.TypedMethod(incrMethodID, argCodec,
		func(ctx context.Context, service any, _ any) (int, error) {
			return service.(*CounterService).Incr(ctx)
		}))
}

// SpawnCounter spawns a node running a fresh CounterService.
func SpawnCounter() *node.Handle {
	return node.Spawn(CounterTable(), func() (any, error) { return &CounterService{}, nil })
}

// CounterClient is the generated client stub for CounterService.
type CounterClient struct{ h *node.Handle }

func NewCounterClient(h *node.Handle) *CounterClient { return &CounterClient{h: h} }

func (c *CounterClient) Incr(ctx context.Context) (int, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), incrMethodID, nil)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(payload, &result); err != nil {
		return 0, err
	}
	return result, nil
}
