package graphql

import (
	"sync"
)

const eventBuffer = 16

// Event is one message of a subscription: a payload, or a terminal error.
type Event struct {
	Response *Response
	Err      error
}

// Subscription is an active streaming operation. Its events channel is closed
// when the server completes the operation, on Close, or when the transport
// gives up reconnecting.
type Subscription struct {
	id     string
	op     Operation
	stream *streamChannel

	events chan Event
	done   chan struct{}

	once     sync.Once
	sendMu   sync.Mutex
	finished bool
}

func newSubscription(id string, op Operation, stream *streamChannel) *Subscription {
	return &Subscription{
		id:     id,
		op:     op,
		stream: stream,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the operation on the server and closes Events. Safe to call more than once.
func (s *Subscription) Close() {
	s.stream.unsubscribe(s)
	s.shutdown()
}

// deliver blocks until ev is consumed or the subscription ends.
func (s *Subscription) deliver(ev Event) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.finished {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// offer delivers ev only if there is room for it.
func (s *Subscription) offer(ev Event) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.finished {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Subscription) shutdown() {
	s.once.Do(func() {
		close(s.done)
		s.sendMu.Lock()
		s.finished = true
		close(s.events)
		s.sendMu.Unlock()
	})
}
