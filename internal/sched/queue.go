package sched

import (
	"context"
	"sort"
	"sync"
	"time"
)

// EventID identifies a scheduled event so it can be cancelled.
type EventID uint64

type event struct {
	id        EventID
	at        time.Duration
	fn        func()
	cancelled bool
}

// Queue is a virtual-time event queue. Events fire in timestamp order;
// events with equal timestamps fire in insertion order, so a fixed seed
// yields a fixed event sequence. Callbacks run on the goroutine that
// drives Run and may schedule further events.
type Queue struct {
	clock *Clock

	mu     sync.Mutex
	nextID EventID
	events []*event // ordered by at, insertion-stable for equal times
	index  map[EventID]*event
}

// NewQueue returns an empty queue driving the given clock.
func NewQueue(clock *Clock) *Queue {
	return &Queue{
		clock: clock,
		index: make(map[EventID]*event),
	}
}

// Now returns the current simulation time, delegated to the clock.
func (q *Queue) Now() time.Time { return q.clock.Now() }

// Elapsed returns the virtual duration since the start of the run.
func (q *Queue) Elapsed() time.Duration { return q.clock.Elapsed() }

// Schedule registers fn to run at the absolute virtual offset at.
// Offsets in the past fire on the next step without rewinding the clock.
func (q *Queue) Schedule(at time.Duration, fn func()) EventID {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	ev := &event{id: q.nextID, at: at, fn: fn}

	// First index whose time is strictly later, so equal timestamps
	// keep insertion order.
	idx := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].at > ev.at
	})
	q.events = append(q.events, nil)
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = ev

	q.index[ev.id] = ev
	return ev.id
}

// ScheduleIn registers fn to run d after the current virtual time.
func (q *Queue) ScheduleIn(d time.Duration, fn func()) EventID {
	return q.Schedule(q.clock.Elapsed()+d, fn)
}

// Cancel prevents a pending event from firing. Unknown or already-fired
// IDs are a no-op.
func (q *Queue) Cancel(id EventID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ev, ok := q.index[id]; ok {
		ev.cancelled = true
		delete(q.index, id)
	}
}

// Len reports the number of pending events, cancelled ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// pop removes the earliest pending event, skipping cancelled ones.
func (q *Queue) pop() *event {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.events) > 0 {
		ev := q.events[0]
		q.events = q.events[1:]
		if ev.cancelled {
			continue
		}
		delete(q.index, ev.id)
		return ev
	}
	return nil
}

// Step fires the earliest pending event, advancing the clock to its
// timestamp first. It returns false when the queue is empty. The callback
// runs outside the queue lock.
func (q *Queue) Step() bool {
	ev := q.pop()
	if ev == nil {
		return false
	}
	q.clock.advanceTo(ev.at)
	ev.fn()
	return true
}

// Run drains the queue until the horizon is reached, the queue empties,
// or ctx is cancelled. Events scheduled beyond until stay pending. With
// speed > 0 the loop paces itself against wall time (1.0 = real time);
// speed <= 0 runs as fast as possible.
func (q *Queue) Run(ctx context.Context, until time.Duration, speed float64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		q.mu.Lock()
		var next *event
		for len(q.events) > 0 && q.events[0].cancelled {
			delete(q.index, q.events[0].id)
			q.events = q.events[1:]
		}
		if len(q.events) > 0 {
			next = q.events[0]
		}
		q.mu.Unlock()

		if next == nil || next.at > until {
			q.clock.advanceTo(until)
			return nil
		}

		if speed > 0 {
			wait := time.Duration(float64(next.at-q.clock.Elapsed()) / speed)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		}

		q.Step()
	}
}
