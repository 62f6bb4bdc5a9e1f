package sched

import (
	"context"
	"testing"
	"time"
)

func TestQueue_OrderAndClock(t *testing.T) {
	q := NewQueue(NewClock())
	var got []string
	q.Schedule(3*time.Second, func() { got = append(got, "c") })
	q.Schedule(1*time.Second, func() { got = append(got, "a") })
	q.Schedule(2*time.Second, func() { got = append(got, "b") })

	if err := q.Run(context.Background(), 10*time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "abc"; got[0]+got[1]+got[2] != want {
		t.Fatalf("expected order %q, got %v", want, got)
	}
	if q.Elapsed() != 10*time.Second {
		t.Fatalf("clock should rest at horizon, got %v", q.Elapsed())
	}
}

func TestQueue_EqualTimestampsFireInInsertionOrder(t *testing.T) {
	q := NewQueue(NewClock())
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(time.Second, func() { got = append(got, i) })
	}
	for q.Step() {
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("equal-time events out of insertion order: %v", got)
		}
	}
}

func TestQueue_Cancel(t *testing.T) {
	q := NewQueue(NewClock())
	fired := false
	id := q.Schedule(time.Second, func() { fired = true })
	q.Cancel(id)
	q.Cancel(id) // repeat is a no-op
	if q.Step() {
		t.Fatalf("cancelled event should not fire")
	}
	if fired {
		t.Fatalf("cancelled callback ran")
	}
}

func TestQueue_ClockNeverRewinds(t *testing.T) {
	q := NewQueue(NewClock())
	q.Schedule(5*time.Second, func() {})
	q.Step()
	// Late insertion with an earlier timestamp still fires, at the current clock.
	ran := false
	q.Schedule(1*time.Second, func() { ran = true })
	q.Step()
	if !ran {
		t.Fatalf("stale-offset event should still fire")
	}
	if q.Elapsed() != 5*time.Second {
		t.Fatalf("clock rewound to %v", q.Elapsed())
	}
}

func TestQueue_PeriodicReArm(t *testing.T) {
	q := NewQueue(NewClock())
	var ticks []time.Duration
	var tick func()
	tick = func() {
		ticks = append(ticks, q.Elapsed())
		q.ScheduleIn(time.Second, tick)
	}
	q.Schedule(time.Second, tick)

	if err := q.Run(context.Background(), 5*time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ticks) != 5 {
		t.Fatalf("expected 5 ticks, got %d (%v)", len(ticks), ticks)
	}
	for i, at := range ticks {
		if want := time.Duration(i+1) * time.Second; at != want {
			t.Fatalf("tick %d at %v, want %v", i, at, want)
		}
	}
}

func TestQueue_HorizonLeavesFutureEventsPending(t *testing.T) {
	q := NewQueue(NewClock())
	fired := false
	q.Schedule(20*time.Second, func() { fired = true })
	if err := q.Run(context.Background(), 10*time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fired {
		t.Fatalf("event beyond horizon fired")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 pending event, got %d", q.Len())
	}
}

func TestQueue_RunStopsOnContextCancel(t *testing.T) {
	q := NewQueue(NewClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Schedule(time.Second, func() {})
	if err := q.Run(ctx, 10*time.Second, 0); err == nil {
		t.Fatalf("expected context error")
	}
}
