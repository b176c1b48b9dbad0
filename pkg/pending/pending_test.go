package pending

import (
	"context"
	"testing"

	"github.com/urands/meshcall/pkg/mailbox"
	"github.com/urands/meshcall/pkg/scheduler"
)

func TestAllocateReusesSmallestFreeIndex(t *testing.T) {
	sched := scheduler.New()
	_ = sched.Start(context.Background(), func(ctx context.Context) error {
		table := New(sched)
		a := table.Allocate()
		b := table.Allocate()
		if a != 0 || b != 1 {
			t.Fatalf("want 0,1 got %d,%d", a, b)
		}
		table.Take(a) // frees index 0
		c := table.Allocate()
		if c != 0 {
			t.Fatalf("want smallest free index 0 reused, got %d", c)
		}
		d := table.Allocate()
		if d != 2 {
			t.Fatalf("want table to grow to 2, got %d", d)
		}
		return nil
	})
}

func TestCompleteThenWaitThenTake(t *testing.T) {
	sched := scheduler.New()
	var got *mailbox.Response
	err := sched.Start(context.Background(), func(ctx context.Context) error {
		table := New(sched)
		id := table.Allocate()
		sched.Spawn(ctx, func(ctx context.Context) {
			if err := table.Wait(ctx, id); err != nil {
				t.Error(err)
				return
			}
			got = table.Take(id)
		})
		sched.Yield(ctx) // let the waiter register
		if err := table.Complete(ctx, id, &mailbox.Response{Success: true, ID: id, Payload: []byte("ok")}); err != nil {
			t.Fatal(err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got == nil || string(got.Payload) != "ok" {
		t.Fatalf("got %v", got)
	}
}

func TestCompleteOnNonBusySlotIsProtocolViolation(t *testing.T) {
	sched := scheduler.New()
	_ = sched.Start(context.Background(), func(ctx context.Context) error {
		table := New(sched)
		if err := table.Complete(ctx, 0, &mailbox.Response{}); err == nil {
			t.Fatalf("expected protocol violation error for unallocated slot")
		}
		return nil
	})
}
