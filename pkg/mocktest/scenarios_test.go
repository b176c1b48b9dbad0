// Package mocktest drives the end-to-end scenarios against the fixtures
// in internal/fixtures, the way a binding layer's own test suite would
// exercise the harness: through spawned nodes and generated-looking
// client stubs only, never by reaching into core package internals.
package mocktest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/urands/meshcall/internal/fixtures"
	"github.com/urands/meshcall/pkg/node"
)

func callCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Scenario 1: single call, no re-entrancy.
func TestScenarioSingleCall(t *testing.T) {
	h := fixtures.SpawnPubkey()
	defer h.Close()

	client := fixtures.NewPubkeyClient(h)
	got, err := client.Pubkey(callCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

// Scenario 2: overloaded methods disambiguated by arity.
func TestScenarioOverloadedMethods(t *testing.T) {
	h := fixtures.SpawnOverload()
	defer h.Close()

	client := fixtures.NewOverloadClient(h)
	ctx := callCtx(t)

	require.NoError(t, client.Recv1(ctx, 1))
	last, err := client.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "recv@1", last)

	require.NoError(t, client.Recv2(ctx, 2, 3))
	last, err = client.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "recv@2", last)
}

// Scenario 3: fan-in counter across one master and three slaves.
func TestScenarioFanInCounter(t *testing.T) {
	master := fixtures.SpawnMaster()
	defer master.Close()
	masterClient := fixtures.NewValueCounterClient(master)

	slaves := make([]*node.Handle, 3)
	slaveClients := make([]*fixtures.ValueCounterClient, 3)
	for i := range slaves {
		slaves[i] = fixtures.SpawnSlave(master)
		defer slaves[i].Close()
		slaveClients[i] = fixtures.NewValueCounterClient(slaves[i])
	}

	ctx := callCtx(t)

	v, err := masterClient.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	for _, sc := range slaveClients {
		v, err := sc.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}

	reqs, err := masterClient.Requests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, reqs)

	for _, sc := range slaveClients {
		v, err := sc.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}

	for _, sc := range slaveClients {
		reqs, err := sc.Requests(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, reqs)
	}

	reqs, err = masterClient.Requests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, reqs)
}

// Scenario 4: a cycle of three nodes, each re-entering the next while
// suspended awaiting its own outbound call.
func TestScenarioCycleOfThree(t *testing.T) {
	a := fixtures.SpawnCycle()
	b := fixtures.SpawnCycle()
	c := fixtures.SpawnCycle()
	defer a.Close()
	defer b.Close()
	defer c.Close()

	ctx := callCtx(t)
	ca, cb, cc := fixtures.NewCycleClient(a), fixtures.NewCycleClient(b), fixtures.NewCycleClient(c)

	require.NoError(t, ca.SetNext(ctx, b.Mailbox()))
	require.NoError(t, cb.SetNext(ctx, c.Mailbox()))
	require.NoError(t, cc.SetNext(ctx, a.Mailbox()))

	got, err := ca.Call(ctx, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 210, got)
}

// Scenario 5: a failing call does not corrupt the node; a later call
// succeeds normally.
func TestScenarioErrorPropagation(t *testing.T) {
	h := fixtures.SpawnErrorProne()
	defer h.Close()

	client := fixtures.NewErrorProneClient(h)
	ctx := callCtx(t)

	_, err := client.Boom(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	got, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

// Scenario 6: two Handles built from the same mailbox, called
// concurrently, observe one consistent serial order; only finalizing the
// owner Handle tears the node down.
func TestScenarioHandleAliasing(t *testing.T) {
	owner := fixtures.SpawnCounter()
	alias := node.FromMailbox(owner.Mailbox())

	ownerClient := fixtures.NewCounterClient(owner)
	aliasClient := fixtures.NewCounterClient(alias)

	const callsPerHandle = 10
	var (
		resultsMu sync.Mutex
		results   = make([]int, 0, 2*callsPerHandle)
	)

	g, ctx := errgroup.WithContext(context.Background())
	gctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for i := 0; i < callsPerHandle; i++ {
		g.Go(func() error {
			v, err := ownerClient.Incr(gctx)
			if err != nil {
				return err
			}
			resultsMu.Lock()
			results = append(results, v)
			resultsMu.Unlock()
			return nil
		})
		g.Go(func() error {
			v, err := aliasClient.Incr(gctx)
			if err != nil {
				return err
			}
			resultsMu.Lock()
			results = append(results, v)
			resultsMu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Ints(results)
	want := make([]int, 2*callsPerHandle)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, results, "concurrent calls through aliased Handles must serialize with no duplicate or skipped values")

	// alias is a non-owner Handle: finalizing it has no teardown effect.
	alias.Close()
	v, err := ownerClient.Incr(callCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 2*callsPerHandle+1, v)

	owner.Close()
}
