package fixtures

import (
	"context"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/node"
)

// PubkeyService is the scenario-1 fixture: a single no-argument method
// with a fixed return value, exercising the simplest possible call path.
type PubkeyService struct{}

func (s *PubkeyService) Pubkey() (int, error) { return 42, nil }

func pubkeyMethodID() descriptor.MethodID { return descriptor.Arity("pubkey", 0) }

// PubkeyTable builds the dispatch descriptor table a generator would emit
// for PubkeyService.
func PubkeyTable() *descriptor.Table {
	return descriptor.NewTable().Register(descriptor.TypedMethod(pubkeyMethodID(), argCodec,
		func(ctx context.Context, service any, _ any) (int, error) {
			return service.(*PubkeyService).Pubkey()
		}))
}

// SpawnPubkey spawns a node running a fresh PubkeyService.
func SpawnPubkey() *node.Handle {
	return node.Spawn(PubkeyTable(), func() (any, error) { return &PubkeyService{}, nil })
}

// PubkeyClient is the generated client stub for PubkeyService.
type PubkeyClient struct{ h *node.Handle }

// NewPubkeyClient wraps h as a typed client.
func NewPubkeyClient(h *node.Handle) *PubkeyClient { return &PubkeyClient{h: h} }

func (c *PubkeyClient) Pubkey(ctx context.Context) (int, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), pubkeyMethodID(), nil)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(payload, &result); err != nil {
		return 0, err
	}
	return result, nil
}
