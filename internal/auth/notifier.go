package auth

import "sync"

// Event describes a change in authentication state.
type Event struct {
	Type    EventType
	Session *Session // nil on sign-out
}

type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
	EventRefreshed EventType = "refreshed"
)

// Notifier fans auth state changes out to subscribers. Subscribers that fall
// behind miss events instead of blocking the publisher.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the channel.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
