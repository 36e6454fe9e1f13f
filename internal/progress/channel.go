package progress

import (
	"sync"
	"sync/atomic"
)

// Listener receives every event published after it subscribed. A nil event
// means progress was cleared and the UI should hide.
type Listener func(Event)

// Channel is an in-memory, synchronous broadcast point. It holds only the
// latest event; nothing is buffered or replayed.
type Channel struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
	current   Event

	cancel atomic.Bool
}

// NewChannel returns an empty Channel.
func NewChannel() *Channel {
	return &Channel{listeners: map[int]Listener{}}
}

// Subscribe registers l and returns a function removing it.
func (c *Channel) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Publish replaces the current event and notifies every listener before
// returning. Listeners must not publish from inside the callback.
func (c *Channel) Publish(e Event) {
	c.mu.Lock()
	c.current = e
	listeners := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		l(e)
	}
}

// Clear resets the current event and notifies listeners with nil.
func (c *Channel) Clear() {
	c.Publish(nil)
}

// Current returns the latest event, or nil.
func (c *Channel) Current() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// RequestCancel asks the running operation to stop at its next stage boundary.
func (c *Channel) RequestCancel() { c.cancel.Store(true) }

// ClearCancel resets the cancellation flag.
func (c *Channel) ClearCancel() { c.cancel.Store(false) }

// CancelRequested reports whether cancellation was requested.
func (c *Channel) CancelRequested() bool { return c.cancel.Load() }

func (c *Channel) snapshot() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}
