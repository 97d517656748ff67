package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/galaxy/internal/sim"
)

func newTestAPI(t *testing.T, snapshot func() sim.Snapshot) *httptest.Server {
	t.Helper()
	s := New("127.0.0.1:0", snapshot, nil)
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestStateEndpoint(t *testing.T) {
	ts := newTestAPI(t, func() sim.Snapshot {
		return sim.Snapshot{
			Root:  "/repo",
			Nodes: 42,
			Agents: []sim.AgentSnapshot{
				{SessionID: "s1", State: "idle", Color: "#ff8800", Node: 7},
			},
		}
	})

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap sim.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "/repo", snap.Root)
	assert.Equal(t, 42, snap.Nodes)
	require.Len(t, snap.Agents, 1)
	assert.Equal(t, "s1", snap.Agents[0].SessionID)
	assert.Equal(t, "idle", snap.Agents[0].State)
}

func TestStateReflectsCurrentSnapshot(t *testing.T) {
	nodes := 1
	ts := newTestAPI(t, func() sim.Snapshot {
		return sim.Snapshot{Nodes: nodes}
	})

	get := func() int {
		resp, err := http.Get(ts.URL + "/state")
		require.NoError(t, err)
		defer resp.Body.Close()
		var snap sim.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		return snap.Nodes
	}

	assert.Equal(t, 1, get())
	nodes = 2
	assert.Equal(t, 2, get())
}

func TestHealthz(t *testing.T) {
	ts := newTestAPI(t, func() sim.Snapshot { return sim.Snapshot{} })

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestAPI(t, func() sim.Snapshot { return sim.Snapshot{} })

	resp, err := http.Post(ts.URL+"/state", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
