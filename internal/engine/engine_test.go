package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/fsmodel"
)

// fast timings keep tests readable: everything completes in a few ticks.
func testTimings() Timings {
	return Timings{
		SpawnDuration:   0.5,
		IdleTimeout:     5.0,
		DespawnDuration: 0.5,
		MoveDuration:    1.0,
	}
}

func testModel(t *testing.T) *fsmodel.Model {
	t.Helper()
	m := fsmodel.New()
	m.AddNode("/repo", true)
	m.AddNode("/repo/src", true)
	m.AddNode("/repo/src/main.go", false)
	m.AddNode("/repo/README.md", false)
	return m
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(testModel(t), testTimings(), nil)
}

func settle(e *Engine, a *Agent) {
	// Run the spawn phase out so the agent sits in Idle.
	for i := 0; i < 20; i++ {
		if _, ok := a.State.(Idle); ok {
			return
		}
		e.Tick(0.1)
	}
}

func TestSessionStartSpawnsAgent(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})

	a, ok := e.Agent("s1")
	require.True(t, ok)
	assert.IsType(t, Spawning{}, a.State)
	assert.Empty(t, a.Queue)
	assert.Equal(t, fsmodel.NoParent, a.CurrentNode)
}

func TestDuplicateSessionStartIsNoop(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")

	e.Handle(event.SessionStart{SessionID: "s1"})
	again, _ := e.Agent("s1")
	assert.Same(t, a, again)
	assert.Len(t, e.Agents(), 1)
}

func TestToolUseQueuesMove(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/repo/src/main.go"})

	a, ok := e.Agent("s1")
	require.True(t, ok)
	require.Len(t, a.Queue, 1)

	idx, _, ok := e.model.NodeByPath("/repo/src/main.go")
	require.True(t, ok)
	assert.Equal(t, idx, a.Queue[0].Node)
	assert.Equal(t, "Reading main.go", a.CurrentAction)
}

func TestToolUseAutoSpawns(t *testing.T) {
	e := newTestEngine(t)
	// No session_start seen, still produces a working agent.
	e.Handle(event.ToolUse{SessionID: "s9", ToolName: "Edit", FilePath: "/repo/README.md"})

	a, ok := e.Agent("s9")
	require.True(t, ok)
	assert.Len(t, a.Queue, 1)
	assert.Equal(t, "Editing README.md", a.CurrentAction)
}

func TestToolUseUnknownPathDropped(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/elsewhere/x.go"})

	_, ok := e.Agent("s1")
	assert.False(t, ok, "no agent for a path outside the tree")
}

func TestMoveLifecycle(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")
	settle(e, a)

	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/repo/src/main.go"})
	idx, _, _ := e.model.NodeByPath("/repo/src/main.go")

	// First tick pops the action and starts the move.
	arrivals := e.Tick(0.1)
	assert.Empty(t, arrivals)
	mv, ok := a.State.(Moving)
	require.True(t, ok)
	assert.Equal(t, idx, mv.Node)
	assert.Equal(t, 0.0, mv.Progress)
	assert.Empty(t, a.Queue)

	// Progress increases monotonically until arrival.
	last := 0.0
	for i := 0; i < 8; i++ {
		arrivals = e.Tick(0.1)
		require.Empty(t, arrivals)
		mv = a.State.(Moving)
		assert.Greater(t, mv.Progress, last)
		last = mv.Progress
	}

	// Crossing 1.0 emits exactly one arrival and lands in Idle{0}.
	arrivals = e.Tick(0.3)
	require.Len(t, arrivals, 1)
	assert.Equal(t, Arrival{SessionID: "s1", Node: idx}, arrivals[0])

	idle, ok := a.State.(Idle)
	require.True(t, ok)
	assert.Equal(t, 0.0, idle.Timer)
	assert.Equal(t, idx, a.CurrentNode)
	assert.Equal(t, mv.To, a.Position)
}

func TestMovesRunFIFO(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/repo/src/main.go"})
	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/repo/README.md"})

	mainIdx, _, _ := e.model.NodeByPath("/repo/src/main.go")
	readmeIdx, _, _ := e.model.NodeByPath("/repo/README.md")

	var order []int
	for i := 0; i < 100 && len(order) < 2; i++ {
		for _, arr := range e.Tick(0.1) {
			order = append(order, arr.Node)
		}
	}
	assert.Equal(t, []int{mainIdx, readmeIdx}, order, "visits happen in queue order, one at a time")
}

func TestIdleTimeoutDespawns(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")
	settle(e, a)
	a.CurrentAction = "Reading main.go"

	for i := 0; i < 51; i++ {
		e.Tick(0.1)
	}
	assert.IsType(t, Despawning{}, a.State)
	assert.Empty(t, a.CurrentAction, "action label cleared at despawn start")
}

func TestDespawnCancelledByToolUse(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")
	a.State = Despawning{Timer: 0.3}

	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/repo/src/main.go"})

	idle, ok := a.State.(Idle)
	require.True(t, ok)
	assert.Equal(t, 0.0, idle.Timer)

	// Same agent, no duplicate registry entry.
	again, _ := e.Agent("s1")
	assert.Same(t, a, again)
	assert.Len(t, e.Agents(), 1)
	assert.Len(t, a.Queue, 1)
}

func TestDespawnCancelledBySessionStart(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")
	a.State = Despawning{Timer: 0.3}

	e.Handle(event.SessionStart{SessionID: "s1"})
	assert.IsType(t, Idle{}, a.State)
	assert.Len(t, e.Agents(), 1)
}

func TestReap(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")
	a.State = Despawning{}

	// Not yet expired.
	e.Tick(0.2)
	assert.Empty(t, e.Reap())

	for i := 0; i < 5; i++ {
		e.Tick(0.2)
	}
	reaped := e.Reap()
	assert.Equal(t, []string{"s1"}, reaped)
	_, ok := e.Agent("s1")
	assert.False(t, ok)
}

func TestHistoryCap(t *testing.T) {
	e := newTestEngine(t)
	idx, _, _ := e.model.NodeByPath("/repo/src/main.go")

	for i := 0; i < 11; i++ {
		e.recordFileEvent(idx, FileEvent{
			ToolName:  "Read",
			SessionID: "s1",
			Timestamp: string(rune('a' + i)),
		})
	}

	events := e.History(idx)
	require.Len(t, events, 10)
	// Entry #1 evicted, #2 is now oldest.
	assert.Equal(t, "b", events[0].Timestamp)
	assert.Equal(t, "k", events[9].Timestamp)
}

func TestHistoryRecordedOnToolUse(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.ToolUse{SessionID: "s1", ToolName: "Write", FilePath: "/repo/README.md", Timestamp: "t0"})

	idx, _, _ := e.model.NodeByPath("/repo/README.md")
	events := e.History(idx)
	require.Len(t, events, 1)
	assert.Equal(t, FileEvent{ToolName: "Write", SessionID: "s1", Timestamp: "t0"}, events[0])
}

func TestSpawnPhaseCompletes(t *testing.T) {
	e := newTestEngine(t)
	e.Handle(event.SessionStart{SessionID: "s1"})
	a, _ := e.Agent("s1")

	e.Tick(0.3)
	assert.IsType(t, Spawning{}, a.State)
	assert.Less(t, e.Scale(a), 1.0)

	e.Tick(0.3)
	assert.IsType(t, Idle{}, a.State)
	assert.Equal(t, 1.0, e.Scale(a))
}

func TestDescribeAction(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"Read", "Reading main.go"},
		{"Write", "Writing main.go"},
		{"Edit", "Editing main.go"},
		{"Grep", "Searching main.go"},
		{"Glob", "Finding main.go"},
		{"Bash", "Working on main.go"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, describeAction(tc.tool, "main.go"))
	}
}
