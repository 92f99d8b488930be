// Package notify delivers notifications: durable rows through the
// repository and best-effort realtime pushes through an in-process hub.
package notify

import (
	"sync"

	"github.com/neristhub/campushub/internal/model"
)

// subscriberBuffer absorbs short bursts so a slow reader does not block
// the writer. When the buffer is full the push is dropped; the inbox row
// is already durable and the client catches up on its next poll.
const subscriberBuffer = 16

type subscriber struct {
	ch chan *model.Notification
}

// Hub tracks at most one live stream per user. A user opening a second
// stream replaces the first, which matches how browsers reconnect an
// EventSource after a network blip.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// Subscribe registers a stream for userID and returns its channel plus an
// opaque handle for Unsubscribe. Any previous stream for the same user is
// closed.
func (h *Hub) Subscribe(userID string) (<-chan *model.Notification, any) {
	sub := &subscriber{ch: make(chan *model.Notification, subscriberBuffer)}

	h.mu.Lock()
	if prev, ok := h.subs[userID]; ok {
		close(prev.ch)
	}
	h.subs[userID] = sub
	h.mu.Unlock()

	return sub.ch, sub
}

// Unsubscribe removes the stream identified by handle. If the user has
// since reconnected, the newer stream is left alone.
func (h *Hub) Unsubscribe(userID string, handle any) {
	sub, ok := handle.(*subscriber)
	if !ok {
		return
	}

	h.mu.Lock()
	if current, ok := h.subs[userID]; ok && current == sub {
		delete(h.subs, userID)
		close(current.ch)
	}
	h.mu.Unlock()
}

// Push offers n to userID's live stream, if any. It never blocks: with no
// subscriber or a full buffer the push is silently dropped. The send
// happens under the read lock so it cannot race a close from Subscribe
// or Unsubscribe, which take the write lock.
func (h *Hub) Push(userID string, n *model.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sub, ok := h.subs[userID]
	if !ok {
		return
	}

	select {
	case sub.ch <- n:
	default:
	}
}
