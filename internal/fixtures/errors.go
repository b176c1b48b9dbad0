package fixtures

import (
	"context"
	"errors"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/node"
)

// ErrorProneService is the scenario-5 fixture: one method that always
// fails, and a second that always succeeds, used to show that a failed
// call leaves the node able to serve subsequent calls normally.
type ErrorProneService struct{}

func (s *ErrorProneService) Boom() (int, error) { return 0, errors.New("boom") }

func (s *ErrorProneService) Ping() (string, error) { return "pong", nil }

var (
	boomMethodID = descriptor.Arity("boom", 0)
	pingMethodID = descriptor.Arity("ping", 0)
)

// ErrorProneTable builds the dispatch descriptor table for
// ErrorProneService.
func ErrorProneTable() *descriptor.Table {
	return descriptor.NewTable().
		Register(descriptor.TypedMethod(boomMethodID, argCodec,
			func(ctx context.Context, service any, _ any) (int, error) {
				return service.(*ErrorProneService).Boom()
			})).
		Register(descriptor.TypedMethod(pingMethodID, argCodec,
			func(ctx context.Context, service any, _ any) (string, error) {
				return service.(*ErrorProneService).Ping()
			}))
}

// SpawnErrorProne spawns a node running a fresh ErrorProneService.
func SpawnErrorProne() *node.Handle {
	return node.Spawn(ErrorProneTable(), func() (any, error) { return &ErrorProneService{}, nil })
}

// ErrorProneClient is the generated client stub for ErrorProneService.
type ErrorProneClient struct{ h *node.Handle }

func NewErrorProneClient(h *node.Handle) *ErrorProneClient { return &ErrorProneClient{h: h} }

func (c *ErrorProneClient) Boom(ctx context.Context) (int, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), boomMethodID, nil)
	if err != nil {
		return 0, err
	}
	var result int
	if err := decodeArgs(payload, &result); err != nil {
		return 0, err
	}
	return result, nil
}

func (c *ErrorProneClient) Ping(ctx context.Context) (string, error) {
	payload, err := node.Call(ctx, c.h.Mailbox(), pingMethodID, nil)
	if err != nil {
		return "", err
	}
	var result string
	if err := decodeArgs(payload, &result); err != nil {
		return "", err
	}
	return result, nil
}
