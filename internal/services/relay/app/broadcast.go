package server

import (
	"errors"
	"sync"

	"github.com/louisbranch/chatrelay/internal/comms"
)

// subscriberQueueCapacity bounds each subscriber's undelivered events.
const subscriberQueueCapacity = 100

// ErrNoSubscribers reports a publish that found no live subscribers.
var ErrNoSubscribers = errors.New("broadcast stream has no live subscribers")

// broadcaster fans a single event stream out to any number of
// subscribers. Each subscriber owns an independent bounded queue; a
// subscriber that falls behind by more than the queue capacity loses
// its oldest undelivered events without affecting the others. publish
// is the stream's single serialization point, so every subscriber
// observes events in the same total order.
type broadcaster struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// subscription is one subscriber's view of a broadcaster stream.
type subscription struct {
	owner *broadcaster
	ch    chan comms.Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[*subscription]struct{})}
}

// subscribe registers a new independent subscriber. Every event
// published after this call is delivered to it.
func (b *broadcaster) subscribe() *subscription {
	sub := &subscription{
		owner: b,
		ch:    make(chan comms.Event, subscriberQueueCapacity),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// publish delivers ev to every live subscriber, evicting the oldest
// undelivered event of any subscriber whose queue is full. It returns
// ErrNoSubscribers when nobody is listening.
func (b *broadcaster) publish(ev comms.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		return ErrNoSubscribers
	}
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Lagged subscriber: drop its oldest undelivered event to make
		// room. Receivers only drain, so the retry cannot block.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

// subscriberCount reports the number of live subscribers.
func (b *broadcaster) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Events returns the receive side of the subscription. The channel is
// closed when the subscription is cancelled.
func (s *subscription) Events() <-chan comms.Event {
	return s.ch
}

// cancel detaches the subscription from its stream and closes the
// event channel. Cancelling twice is safe.
func (s *subscription) cancel() {
	s.owner.mu.Lock()
	if _, ok := s.owner.subs[s]; ok {
		delete(s.owner.subs, s)
		close(s.ch)
	}
	s.owner.mu.Unlock()
}
