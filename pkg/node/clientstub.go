package node

import (
	"context"

	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/mailbox"
	"github.com/urands/meshcall/pkg/pending"
	"github.com/urands/meshcall/pkg/scheduler"
)

// callerInfo is attached to a node worker's base context once, before
// Scheduler.Start runs the main loop: a per-node handle to its own
// mailbox and pending table, carried as a context value
// rather than goroutine-local storage, which Go does not have. Every
// dispatch task inherits it because every task's context is derived
// from this same base.
type callerInfo struct {
	mailbox mailbox.Handle
	pending *pending.Table
}

type callerCtxKey struct{}

func withCaller(ctx context.Context, c *callerInfo) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, c)
}

func callerFromContext(ctx context.Context) (*callerInfo, bool) {
	c, ok := ctx.Value(callerCtxKey{}).(*callerInfo)
	return c, ok
}

// Call is the shared body of every generated ClientStub method: send a
// Command carrying the already-encoded argument payload to dest, and
// block for its Response, either by
// suspending on a PendingTable slot (re-entrant caller, running inside some
// node's scheduler) or by block-receiving on a throwaway reply mailbox
// (plain caller, e.g. a test's main goroutine). It returns the reply
// payload, still encoded, on success, or a *RemoteError carrying the remote's
// message on failure.
func Call(ctx context.Context, dest mailbox.Handle, method descriptor.MethodID, payload []byte) ([]byte, error) {
	if caller, ok := callerFromContext(ctx); ok {
		if _, isScheduled := scheduler.FromContext(ctx); isScheduled {
			return callReentrant(ctx, caller, dest, method, payload)
		}
	}
	return callBlocking(ctx, dest, method, payload)
}

func callReentrant(ctx context.Context, caller *callerInfo, dest mailbox.Handle, method descriptor.MethodID, payload []byte) ([]byte, error) {
	id := caller.pending.Allocate()
	dest.Send(&mailbox.Command{
		Origin:  caller.mailbox,
		ID:      id,
		Method:  string(method),
		Payload: payload,
	})
	if err := caller.pending.Wait(ctx, id); err != nil {
		return nil, err
	}
	resp := caller.pending.Take(id)
	return decodeResponse(resp)
}

func callBlocking(ctx context.Context, dest mailbox.Handle, method descriptor.MethodID, payload []byte) ([]byte, error) {
	reply := mailbox.New()
	dest.Send(&mailbox.Command{
		Origin:  reply,
		ID:      mailbox.Sentinel,
		Method:  string(method),
		Payload: payload,
	})
	msg, err := reply.Recv(ctx)
	if err != nil {
		return nil, err
	}
	resp, ok := msg.(*mailbox.Response)
	if !ok {
		return nil, &RemoteError{Text: "node: unexpected reply type on blocking call"}
	}
	return decodeResponse(resp)
}

func decodeResponse(resp *mailbox.Response) ([]byte, error) {
	if resp == nil {
		return nil, &RemoteError{Text: "node: no reply recorded for request"}
	}
	if !resp.Success {
		return nil, &RemoteError{Text: string(resp.Payload)}
	}
	return resp.Payload, nil
}
