package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestSpawnRunsAfterYield(t *testing.T) {
	var order []string
	s := New()
	err := s.Start(context.Background(), func(ctx context.Context) error {
		order = append(order, "main-before-spawn")
		s.Spawn(ctx, func(ctx context.Context) {
			order = append(order, "spawned")
		})
		s.Yield(ctx)
		order = append(order, "main-after-yield")
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	want := []string{"main-before-spawn", "spawned", "main-after-yield"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestConditionWaitNotify(t *testing.T) {
	s := New()
	var cond *Condition
	var woke bool
	err := s.Start(context.Background(), func(ctx context.Context) error {
		cond = s.NewCondition()
		s.Spawn(ctx, func(ctx context.Context) {
			if err := cond.Wait(ctx); err != nil {
				t.Error(err)
			}
			woke = true
		})
		s.Yield(ctx) // let the spawned task reach Wait
		cond.Notify(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !woke {
		t.Fatalf("waiter never woke")
	}
}

func TestWaitTimeoutExpires(t *testing.T) {
	s := New()
	var notified bool
	err := s.Start(context.Background(), func(ctx context.Context) error {
		cond := s.NewCondition()
		var waitErr error
		s.Spawn(ctx, func(ctx context.Context) {
			notified, waitErr = cond.WaitTimeout(ctx, 10*time.Millisecond)
		})
		s.Yield(ctx) // let the spawned task register its wait and its timer
		// Give the timer long enough to fire without ever notifying it.
		time.Sleep(50 * time.Millisecond)
		s.Yield(ctx) // pick up the now-ready, timed-out task and let it finish
		if waitErr != nil {
			t.Error(waitErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if notified {
		t.Fatalf("expected timeout, got notified=true")
	}
}

func TestShutdownWakesSuspendedConditions(t *testing.T) {
	s := New()
	var waitErr error
	err := s.Start(context.Background(), func(ctx context.Context) error {
		cond := s.NewCondition()
		s.Spawn(ctx, func(ctx context.Context) {
			waitErr = cond.Wait(ctx)
		})
		s.Yield(ctx) // let it reach Wait
		return ErrShutdown
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if waitErr != ErrShutdown {
		t.Fatalf("suspended waiter got %v, want ErrShutdown", waitErr)
	}
}

func TestFromContextDetectsSchedulerPresence(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("plain context should not report a scheduler")
	}
	s := New()
	_ = s.Start(context.Background(), func(ctx context.Context) error {
		got, ok := FromContext(ctx)
		if !ok || got != s {
			t.Errorf("FromContext inside a task = (%v, %v), want (%v, true)", got, ok, s)
		}
		return nil
	})
}
