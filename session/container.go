package session

import (
	"sync"
)

// Container owns the session state. All mutation goes through Dispatch.
type Container struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewContainer() *Container {
	return &Container{
		state:     InitialState(),
		listeners: make(map[int]func(State)),
	}
}

// Dispatch applies a and notifies subscribers when the state changed.
// Listeners run synchronously on the dispatching goroutine, after the lock is released.
func (c *Container) Dispatch(a Action) State {
	c.mu.Lock()
	prev := c.state
	c.state = Reduce(c.state, a)
	next := c.state
	var notify []func(State)
	if next != prev {
		notify = make([]func(State), 0, len(c.listeners))
		for _, fn := range c.listeners {
			notify = append(notify, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn(next)
	}
	return next
}

func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe registers fn for state changes and returns its cancel func.
func (c *Container) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}
