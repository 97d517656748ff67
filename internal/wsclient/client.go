// Package wsclient maintains the persistent WebSocket subscription to the
// relay, reconnecting with backoff, and pushes parsed events onto the
// unbounded queue the tick driver drains. The core is indifferent to this
// transport; only already-parsed events cross the boundary.
package wsclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/metrics"
	"github.com/marcus/galaxy/internal/queue"
)

// Client subscribes to a relay event stream.
type Client struct {
	url string
	out *queue.Queue[event.AgentEvent]
	log *slog.Logger

	dialer     websocket.Dialer
	backoffMin time.Duration
	backoffMax time.Duration
}

// New returns a client for the given ws:// URL.
func New(url string, out *queue.Queue[event.AgentEvent], log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url: url,
		out: out,
		log: log,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		backoffMin: time.Second,
		backoffMax: 30 * time.Second,
	}
}

// SetBackoff overrides the reconnect backoff bounds.
func (c *Client) SetBackoff(min, max time.Duration) {
	if min > 0 {
		c.backoffMin = min
	}
	if max >= c.backoffMin {
		c.backoffMax = max
	}
}

// Run connects and reads until ctx is cancelled, reconnecting with
// exponential backoff after every failure. Backoff resets once a
// connection is established.
func (c *Client) Run(ctx context.Context) {
	backoff := c.backoffMin
	for {
		c.log.Info("connecting to event stream", "url", c.url)
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn("connect failed", "url", c.url, "err", err)
		} else {
			c.log.Info("connected to event stream", "url", c.url)
			backoff = c.backoffMin
			c.readLoop(ctx, conn)
		}

		if ctx.Err() != nil {
			return
		}
		metrics.WSReconnectsTotal.Inc()
		c.log.Info("reconnecting", "in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.backoffMax)
	}
}

// readLoop pumps one connection until it breaks or ctx is cancelled.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	// Unblock ReadMessage when the context goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("read error", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ev, err := event.Parse(data)
		if err != nil {
			c.log.Warn("dropping unparseable event", "err", err)
			continue
		}
		c.out.Push(ev)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
