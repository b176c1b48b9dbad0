// Package node implements the worker side of the harness: the event loop
// that owns a node's thread, the dispatcher that decodes and invokes
// inbound commands, the ClientStub call path shared by every generated
// method, and the Handle that clients hold to reach a node and, for its
// owner, to tear it down.
package node

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/urands/meshcall/pkg/config"
	"github.com/urands/meshcall/pkg/descriptor"
	"github.com/urands/meshcall/pkg/mailbox"
	"github.com/urands/meshcall/pkg/observability"
	"github.com/urands/meshcall/pkg/pending"
	"github.com/urands/meshcall/pkg/scheduler"
)

// initLogging installs the global zap logger the first time any node is
// spawned. Every worker logs through zap.L(), so something has to call
// observability.SetupLogger before the first one starts; a harness has no
// cmd/ entrypoint to do it from, so Spawn does it itself.
var initLogging sync.Once

func ensureLogging(c config.LogConfig) {
	initLogging.Do(func() {
		if _, err := observability.SetupLogger(c); err != nil {
			zap.L().Error("logger setup failed, falling back to no-op logger", zap.Error(err))
		}
	})
}

// Handle is the user-facing client: a mailbox reference plus, for the
// spawning owner only, ownership of the worker thread's lifetime.
type Handle struct {
	mb      mailbox.Handle
	isOwner bool
}

// FromMailbox constructs a non-owner Handle from an existing mailbox
// reference, e.g. one received inside a Command payload via
// mailbox.DecodeHandle. Non-owner Handles have no teardown effect.
func FromMailbox(mb mailbox.Handle) *Handle {
	return &Handle{mb: mb}
}

// Mailbox exposes the underlying mailbox reference, e.g. so it can be
// encoded and handed to another node.
func (h *Handle) Mailbox() mailbox.Handle { return h.mb }

// Close tears the node down if h is the owner Handle: it sends
// OwnerTerminated, causing the worker's main loop to exit after the
// current iteration. Non-owner Handles ignore Close.
func (h *Handle) Close() {
	if !h.isOwner {
		return
	}
	h.mb.Send(mailbox.OwnerTerminated{})
}

// Construct builds the user service object a spawned node will run. It
// receives nothing and returns (service, error): the binding layer closes
// over whatever constructor arguments the service type needs.
type Construct func() (any, error)

// Spawn constructs and starts a new node: a worker goroutine owning one
// Scheduler, one PendingTable, one mailbox, and one user service object
// built by construct and dispatched through table. It returns immediately
// with the owner Handle; the service object itself is constructed inside
// the worker, so construct never runs on the caller's goroutine.
func Spawn(table *descriptor.Table, construct Construct) *Handle {
	return SpawnWithConfig(table, construct, config.Default().Harness)
}

// SpawnWithConfig is Spawn, but sizes the node's scheduler ready queue and
// pending table from cfg instead of the package defaults.
func SpawnWithConfig(table *descriptor.Table, construct Construct, cfg config.HarnessConfig) *Handle {
	ensureLogging(config.Default().Log)
	mb := mailbox.New()
	h := &Handle{mb: mb, isOwner: true}
	go runWorker(mb, table, construct, cfg)
	runtime.AddCleanup(h, func(m mailbox.Handle) {
		m.Send(mailbox.OwnerTerminated{})
	}, mb)
	return h
}

// runtimeNode is the per-worker-thread state: the user service object, the
// Scheduler, the PendingTable, and the Mailbox. None of it is shared
// across node threads.
type runtimeNode struct {
	mailbox  mailbox.Handle
	table    *descriptor.Table
	service  any
	sched    *scheduler.Scheduler
	pending  *pending.Table
	log      *zap.Logger
	abortErr error
}

func runWorker(mb mailbox.Handle, table *descriptor.Table, construct Construct, cfg config.HarnessConfig) {
	log := zap.L().With(zap.Uint64("node_id", mb.ID()))
	defer mb.Close()

	service, err := construct()
	if err != nil {
		log.Error("node construction failed", zap.Error(err))
		return
	}
	if closer, ok := service.(interface{ Close() }); ok {
		defer closer.Close()
	}

	sched := scheduler.NewWithCapacity(cfg.SchedulerReadyQueueCapacityHint)
	n := &runtimeNode{
		mailbox: mb,
		table:   table,
		service: service,
		sched:   sched,
		pending: pending.NewWithCapacity(sched, cfg.PendingTableCapacityHint),
		log:     log,
	}
	log.Debug("node started")

	baseCtx := withCaller(context.Background(), &callerInfo{
		mailbox: mb,
		pending: n.pending,
	})

	if err := sched.Start(baseCtx, n.mainLoop); err != nil {
		log.Error("node aborted", zap.Error(err))
		return
	}
	if n.abortErr != nil {
		log.Error("node aborted", zap.Error(n.abortErr))
	}
	log.Debug("node stopped")
}

// mainLoop is the body of the worker thread's one entry task, run inside
// the Scheduler. It yields once per iteration (so any task spawned or
// woken by the previous iteration gets to run) before blocking for the
// next inbound message.
func (n *runtimeNode) mainLoop(ctx context.Context) error {
	for {
		n.sched.Yield(ctx)

		msg, err := n.mailbox.Recv(ctx)
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case mailbox.OwnerTerminated:
			n.log.Debug("owner terminated, shutting down")
			return scheduler.ErrShutdown
		case *mailbox.Response:
			n.log.Debug("response received", zap.Uint64("request_id", m.ID), zap.Bool("success", m.Success))
			if err := n.pending.Complete(ctx, m.ID, m); err != nil {
				n.log.Error("response delivery failed", zap.Uint64("request_id", m.ID), zap.Error(err))
				n.abortErr = err
				return scheduler.ErrShutdown
			}
		case *mailbox.Command:
			cmd := m
			n.log.Debug("command received", zap.Uint64("request_id", cmd.ID), zap.String("method", cmd.Method))
			n.sched.Spawn(ctx, func(ctx context.Context) { n.dispatch(ctx, cmd) })
		default:
			n.abortErr = fmt.Errorf("node: unexpected mailbox message %T", m)
			n.log.Error("unexpected mailbox message", zap.String("type", fmt.Sprintf("%T", m)))
			return scheduler.ErrShutdown
		}
	}
}
