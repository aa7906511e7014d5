package provider

import (
	"context"
	"sync"

	"github.com/gammazero/channelqueue"
	"github.com/ipni/go-dynconf/resolver"
)

// EvictedEvent notifies an OnEvicted reader that an idle instance was removed
// by SweepExpired.
type EvictedEvent struct {
	// Provider is the name of the provider that owned the instance.
	Provider string
	// Key identifies the evicted instance.
	Key resolver.Key
	// Err is the deactivation error, if deactivation failed.
	Err error
}

// notifier delivers events to any number of unbounded channels.
type notifier struct {
	mu     sync.Mutex
	chans  []chan<- EvictedEvent
	closed bool
}

func (n *notifier) subscribe() (<-chan EvictedEvent, context.CancelFunc) {
	cq := channelqueue.New[EvictedEvent](-1)
	ch := cq.In()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return cq.Out(), func() {}
	}
	n.chans = append(n.chans, ch)
	n.mu.Unlock()

	var once sync.Once
	cncl := func() {
		once.Do(func() {
			n.remove(ch)
		})
	}
	return cq.Out(), cncl
}

func (n *notifier) remove(ch chan<- EvictedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, ca := range n.chans {
		if ca == ch {
			n.chans[i] = n.chans[len(n.chans)-1]
			n.chans[len(n.chans)-1] = nil
			n.chans = n.chans[:len(n.chans)-1]
			close(ch)
			break
		}
	}
}

func (n *notifier) publish(event EvictedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.chans {
		ch <- event
	}
}

// close closes all channels. Subsequent subscriptions get a closed channel.
func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.chans {
		close(ch)
	}
	n.chans = nil
	n.closed = true
}
