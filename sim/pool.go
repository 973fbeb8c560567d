package sim

import "fmt"

// Pool is a counting semaphore of fixed capacity living on a Scheduler.
// Waiters are served strictly first come, first served. There is no priority,
// preemption or timeout.
type Pool struct {
	name     string
	capacity int
	inUse    int
	waiters  []func()
	sched    *Scheduler
}

func NewPool(name string, capacity int, sched *Scheduler) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: pool %q capacity must be > 0, got %d", ErrInvalidConfig, name, capacity)
	}
	return &Pool{name: name, capacity: capacity, sched: sched}, nil
}

// Acquire grants a unit to fn. When a unit is free fn is scheduled at the
// current time; otherwise fn joins the back of the wait queue.
func (p *Pool) Acquire(fn func()) {
	if p.inUse < p.capacity {
		p.inUse++
		p.sched.After(0, fn)
		return
	}
	p.waiters = append(p.waiters, fn)
}

// Release returns a unit. The longest waiter, if any, takes it over directly.
func (p *Pool) Release() {
	if p.inUse == 0 {
		panic(fmt.Sprintf("pool %s: release without acquire", p.name))
	}
	if len(p.waiters) > 0 {
		next := p.waiters[0]
		p.waiters[0] = nil
		p.waiters = p.waiters[1:]
		p.sched.After(0, next)
		return
	}
	p.inUse--
}

func (p *Pool) Name() string { return p.name }
func (p *Pool) Capacity() int { return p.capacity }
func (p *Pool) InUse() int { return p.inUse }
func (p *Pool) Waiting() int { return len(p.waiters) }
