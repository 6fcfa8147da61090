package state

import (
	"slices"

	"github.com/cinewatch/cinewatch/internal/sse"
)

// Listener receives every state event in the order changes were applied.
type Listener func(event sse.Event)

type subscriber struct {
	id int
	fn Listener
}

// Subscribe registers fn for state events. Listeners run synchronously and
// must not call back into the store.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	key := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: key, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscriber) bool { return sub.id == key })
		s.subMu.Unlock()
	}
}

// publishAndUnlock releases mu and delivers events before any other change
// can be delivered. Caller holds mu.
func (s *Store) publishAndUnlock(events ...sse.Event) {
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	s.deliver(events)
}

// publish delivers events that do not describe a state change.
func (s *Store) publish(events ...sse.Event) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.deliver(events)
}

func (s *Store) deliver(events []sse.Event) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		listeners = append(listeners, sub.fn)
	}
	s.subMu.Unlock()

	for _, ev := range events {
		s.emitter.Emit(ev)
		for _, fn := range listeners {
			fn(ev)
		}
	}
}
