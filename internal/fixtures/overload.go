package fixtures

import (
	"context"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/node"
)

// OverloadService is the scenario-2 fixture: two methods sharing the name
// "recv" but disambiguated by arity, plus a side-channel Last() that
// reports which overload fired most recently.
type OverloadService struct {
	last string
}

func (s *OverloadService) Recv1(a int) error {
	s.last = "recv@1"
	return nil
}

func (s *OverloadService) Recv2(a, b int) error {
	s.last = "recv@2"
	return nil
}

func (s *OverloadService) Last() (string, error) { return s.last, nil }

type recv1Args struct{ A int }
type recv2Args struct{ A, B int }

var (
	recv1MethodID = descriptor.Arity("recv", 1)
	recv2MethodID = descriptor.Arity("recv", 2)
	lastMethodID  = descriptor.Arity("last", 0)
)

// OverloadTable builds the dispatch descriptor table for OverloadService.
func OverloadTable() *descriptor.Table {
	return descriptor.NewTable().
		Register(descriptor.TypedMethod(recv1MethodID, argCodec,
			func(ctx context.Context, service any, a recv1Args) (any, error) {
				return nil, service.(*OverloadService).Recv1(a.A)
			})).
		Register(descriptor.TypedMethod(recv2MethodID, argCodec,
			func(ctx context.Context, service any, a recv2Args) (any, error) {
				return nil, service.(*OverloadService).Recv2(a.A, a.B)
			})).
		Register(descriptor.TypedMethod(lastMethodID, argCodec,
			func(ctx context.Context, service any, _ any) (string, error) {
				return service.(*OverloadService).Last()
			}))
}

// SpawnOverload spawns a node running a fresh OverloadService.
func SpawnOverload() *node.Handle {
	return node.Spawn(OverloadTable(), func() (any, error) { return &OverloadService{}, nil })
}

// OverloadClient is the generated client stub for OverloadService.
type OverloadClient struct{ h *node.Handle }

func NewOverloadClient(h *node.Handle) *OverloadClient { return &OverloadClient{h: h} }

func (c *OverloadClient) Recv1(ctx context.Context, a int) error {
	payload, err := encodeArgs(recv1Args{A: a})
	if err != nil {
		return err
	}
	_, err = node.Call(ctx, c.h.Mailbox(), recv1MethodID, payload)
	return err
}

func (c *OverloadClient) Recv2(ctx context.Context, a, b int) error {
	payload, err := encodeArgs(recv2Args{A: a, B: b})
	if err != nil {
		return err
	}
	_, err = node.Call(ctx, c.h.Mailbox(), recv2MethodID, payload)
	return err
}

func (c *OverloadClient) Last(ctx context.Context) (string, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), lastMethodID, nil)
	if err != nil {
		return "", err
	}
	var result string
	if err := decodeArgs(payload, &result); err != nil {
		return "", err
	}
	return result, nil
}
