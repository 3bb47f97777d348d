package progress

import (
	"context"
	"sync"
)

// Notifier fans events out to per-owner subscribers. It implements Sink so it
// can be registered on the Hub alongside the metric and log sinks. Delivery
// is fire-and-forget: a subscriber whose channel is full loses the event
// rather than blocking the batch.
type Notifier struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	buffer int
	closed bool
}

// NewNotifier constructs a Notifier. Each subscriber channel buffers up to
// buffer events (default 16).
func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &Notifier{
		subs:   make(map[string]map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a channel for events owned by ownerID. The returned
// cancel function unregisters and closes the channel; it is safe to call more
// than once.
func (n *Notifier) Subscribe(ownerID string) (<-chan Event, func()) {
	ch := make(chan Event, n.buffer)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	owners := n.subs[ownerID]
	if owners == nil {
		owners = make(map[chan Event]struct{})
		n.subs[ownerID] = owners
	}
	owners[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			registered := false
			if owners, ok := n.subs[ownerID]; ok {
				if _, ok := owners[ch]; ok {
					registered = true
					delete(owners, ch)
					if len(owners) == 0 {
						delete(n.subs, ownerID)
					}
				}
			}
			n.mu.Unlock()
			// Close unregisters and closes channels itself; avoid a double
			// close when cancel races shutdown.
			if registered {
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Consume delivers each event to the subscribers of its owner. Events without
// an owner go to subscribers of the empty key.
func (n *Notifier) Consume(_ context.Context, batch []Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	for _, evt := range batch {
		for ch := range n.subs[evt.OwnerID] {
			select {
			case ch <- evt:
			default:
				// Slow subscriber; drop.
			}
		}
	}
	return nil
}

// Close unregisters and closes every subscriber channel.
func (n *Notifier) Close(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	for _, owners := range n.subs {
		for ch := range owners {
			close(ch)
		}
	}
	n.subs = make(map[string]map[chan Event]struct{})
	return nil
}
