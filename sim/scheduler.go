package sim

import "container/heap"

// event is a continuation due at a simulated time. seq breaks ties so events
// scheduled for the same instant run in the order they were scheduled.
type event struct {
	at  float64
	seq uint64
	fn  func()
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any) { *q = append(*q, x.(event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = event{}
	*q = old[:n-1]
	return e
}

// Scheduler is a single-threaded discrete-event loop. Processes suspend by
// scheduling their next step with After; nothing runs concurrently.
type Scheduler struct {
	now   float64
	seq   uint64
	queue eventQueue
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Now() float64 { return s.now }

// Len is the number of pending events.
func (s *Scheduler) Len() int { return len(s.queue) }

// At schedules fn at absolute time t. Times in the past run at Now.
func (s *Scheduler) At(t float64, fn func()) {
	if t < s.now {
		t = s.now
	}
	heap.Push(&s.queue, event{at: t, seq: s.seq, fn: fn})
	s.seq++
}

// After schedules fn delay minutes from now.
func (s *Scheduler) After(delay float64, fn func()) {
	s.At(s.now+delay, fn)
}

// RunUntil processes events due strictly before limit, then leaves the clock
// at limit. Later events stay queued and never run.
func (s *Scheduler) RunUntil(limit float64) {
	for len(s.queue) > 0 && s.queue[0].at < limit {
		e := heap.Pop(&s.queue).(event)
		s.now = e.at
		e.fn()
	}
	if s.now < limit {
		s.now = limit
	}
}
