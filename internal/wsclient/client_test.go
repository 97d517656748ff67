package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/queue"
)

func TestNextBackoff(t *testing.T) {
	max := 30 * time.Second

	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, max))
	assert.Equal(t, 16*time.Second, nextBackoff(8*time.Second, max))
	// Doubling caps at max and stays there.
	assert.Equal(t, max, nextBackoff(16*time.Second, max))
	assert.Equal(t, max, nextBackoff(max, max))
}

func TestSetBackoff(t *testing.T) {
	c := New("ws://example.test/ws", queue.New[event.AgentEvent](), nil)
	c.SetBackoff(100*time.Millisecond, 2*time.Second)
	assert.Equal(t, 100*time.Millisecond, c.backoffMin)
	assert.Equal(t, 2*time.Second, c.backoffMax)

	// Nonsense bounds are ignored.
	c.SetBackoff(0, 50*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, c.backoffMin)
	assert.Equal(t, 2*time.Second, c.backoffMax)
}

// wsEcho serves one websocket connection and pushes the given frames.
func wsEcho(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestRunReceivesAndParsesEvents(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"type":"session_start","session_id":"s1"}`),
		[]byte(`{"type":"tool_use","session_id":"s1","tool_name":"Read","file_path":"/repo/a.go"}`),
		[]byte(`{"type":"bogus"}`), // dropped, not fatal
		[]byte(`{"type":"tool_use","session_id":"s1","tool_name":"Edit","file_path":"/repo/b.go"}`),
	}
	ts := wsEcho(t, frames)
	defer ts.Close()

	out := queue.New[event.AgentEvent]()
	c := New("ws"+strings.TrimPrefix(ts.URL, "http"), out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return out.Len() == 3 }, 3*time.Second, 10*time.Millisecond)

	events := out.DrainAll()
	_, ok := events[0].(event.SessionStart)
	assert.True(t, ok)

	tu, ok := events[1].(event.ToolUse)
	require.True(t, ok)
	assert.Equal(t, "/repo/a.go", tu.FilePath)

	tu, ok = events[2].(event.ToolUse)
	require.True(t, ok)
	assert.Equal(t, "Edit", tu.ToolName)
}

func TestRunReconnects(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if conns.Add(1) == 1 {
			// Drop the first connection immediately to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"session_start","session_id":"after-reconnect"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	out := queue.New[event.AgentEvent]()
	c := New("ws"+strings.TrimPrefix(ts.URL, "http"), out, nil)
	c.SetBackoff(10*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return out.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	ev := out.DrainAll()[0]
	ss, ok := ev.(event.SessionStart)
	require.True(t, ok)
	assert.Equal(t, "after-reconnect", ss.SessionID)
}

func TestRunStopsOnCancel(t *testing.T) {
	ts := wsEcho(t, nil)
	defer ts.Close()

	c := New("ws"+strings.TrimPrefix(ts.URL, "http"), queue.New[event.AgentEvent](), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
