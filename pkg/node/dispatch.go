package node

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/urands/meshcall/pkg/mailbox"
)

// dispatch runs as an ordinary scheduler task. Method bodies that make
// outbound calls simply suspend on a PendingTable slot here; the main loop
// continues servicing other messages in the meantime, which is what makes
// re-entrant and cyclic topologies work.
func (n *runtimeNode) dispatch(ctx context.Context, cmd *mailbox.Command) {
	log := n.log.With(zap.Uint64("request_id", cmd.ID), zap.String("method", cmd.Method))

	method, ok := n.table.Lookup(cmd.Method)
	if !ok {
		// Unknown method: a programming error (the binding layer failed to
		// keep both sides' dispatch tables consistent), not a recoverable
		// failure response. Abort the node.
		log.Error("unknown method")
		n.abortNode(fmt.Errorf("node: unknown method %q", cmd.Method))
		return
	}

	args, err := method.Decode(cmd.Payload)
	if err != nil {
		log.Error("decode failed", zap.Error(err))
		n.reply(cmd, false, []byte(fmt.Sprintf("decode %s: %v", cmd.Method, err)))
		return
	}

	result, err := method.Invoke(ctx, n.service, args)
	if err != nil {
		log.Info("invoke failed", zap.Error(err))
		n.reply(cmd, false, []byte(err.Error()))
		return
	}

	payload, err := method.Encode(result)
	if err != nil {
		log.Error("encode failed", zap.Error(err))
		n.reply(cmd, false, []byte(fmt.Sprintf("encode %s: %v", cmd.Method, err)))
		return
	}
	log.Debug("invoke succeeded")
	n.reply(cmd, true, payload)
}

func (n *runtimeNode) reply(cmd *mailbox.Command, success bool, payload []byte) {
	cmd.Origin.Send(&mailbox.Response{Success: success, ID: cmd.ID, Payload: payload})
}

// abortNode records the diagnostic and sends this node's own mailbox the
// poison message, reusing the normal shutdown path rather than inventing a
// second one: runWorker distinguishes "owner closed us" from "we aborted"
// by checking abortErr once the scheduler has drained.
func (n *runtimeNode) abortNode(err error) {
	n.abortErr = err
	n.mailbox.Send(mailbox.OwnerTerminated{})
}
