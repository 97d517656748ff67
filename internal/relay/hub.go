// Package relay is the fan-out service between tool-use hooks and
// visualization clients: POST endpoints accept notifications, a hub
// rebroadcasts them to every WebSocket subscriber. The relay keeps no
// state beyond the live subscriber set; a restart loses nothing that
// matters since the stream is ephemeral by contract.
package relay

import (
	"log/slog"
	"sync"

	"github.com/marcus/galaxy/internal/metrics"
)

// subscriberBuffer is the per-subscriber send queue depth. A subscriber
// that falls this far behind starts losing messages rather than stalling
// the broadcast.
const subscriberBuffer = 64

// Hub fans messages out to subscribers.
type Hub struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// Subscriber is one attached WebSocket client.
type Subscriber struct {
	send chan []byte
}

// Send is the channel the connection writer drains.
func (s *Subscriber) Send() <-chan []byte { return s.send }

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:  log,
		subs: make(map[*Subscriber]struct{}),
	}
}

// Subscribe attaches a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.RelaySubscribers.Set(float64(n))
	h.log.Info("subscriber attached", "total", n)
	return sub
}

// Unsubscribe detaches a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.RelaySubscribers.Set(float64(n))
	h.log.Info("subscriber detached", "total", n)
}

// Broadcast sends msg to every subscriber. Slow subscribers drop
// messages instead of blocking the sender.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	metrics.RelayBroadcastsTotal.Inc()
	for sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			metrics.RelayDroppedTotal.Inc()
			h.log.Debug("dropping message for slow subscriber")
		}
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
