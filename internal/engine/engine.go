// Package engine drives the per-session agent lifecycle: spawn, idle,
// constant-duration moves along the queued visit list, and despawn after
// an idle timeout. The engine owns all agent state exclusively; it is
// advanced once per tick by a single driver and reads the filesystem
// model without ever mutating it.
package engine

import (
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/fsmodel"
	"github.com/marcus/galaxy/internal/layout"
)

// maxFileEvents caps the per-node history kept for hover detail.
const maxFileEvents = 10

// spawnPoint is where new agents appear before their first move.
var spawnPoint = layout.Vec3{X: 0, Y: 15, Z: 0}

// Agent is one visiting entity per active session.
type Agent struct {
	SessionID     string
	Queue         []MoveAction
	State         AgentState
	Position      layout.Vec3
	CurrentNode   int // node the agent is at or flying toward; fsmodel.NoParent when none
	CurrentAction string
	Color         layout.RGB
}

// FileEvent is one entry of a node's bounded activity history.
type FileEvent struct {
	ToolName  string `json:"tool_name"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Arrival is emitted when an agent finishes a move. Consumers (highlight
// feedback, visit statistics) drain these every tick; none are dropped.
type Arrival struct {
	SessionID string
	Node      int
}

// Engine holds the session registry and per-node history.
type Engine struct {
	model   *fsmodel.Model
	timings Timings
	log     *slog.Logger

	agents  map[string]*Agent
	history map[int][]FileEvent
}

// New returns an engine over the given model.
func New(model *fsmodel.Model, timings Timings, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		model:   model,
		timings: timings,
		log:     log,
		agents:  make(map[string]*Agent),
		history: make(map[int][]FileEvent),
	}
}

// Handle dispatches one inbound event.
func (e *Engine) Handle(ev event.AgentEvent) {
	switch v := ev.(type) {
	case event.SessionStart:
		e.handleSessionStart(v)
	case event.ToolUse:
		e.handleToolUse(v)
	}
}

func (e *Engine) handleSessionStart(ev event.SessionStart) {
	if ev.SessionID == "" {
		return
	}
	if a, ok := e.agents[ev.SessionID]; ok {
		// Duplicate start is harmless; a despawn in progress is cancelled.
		if _, despawning := a.State.(Despawning); despawning {
			a.State = Idle{}
		}
		return
	}
	e.log.Info("spawning agent", "session", ev.SessionID)
	e.spawn(ev.SessionID)
}

func (e *Engine) handleToolUse(ev event.ToolUse) {
	if ev.SessionID == "" {
		return
	}

	canon := canonicalPath(ev.FilePath)
	idx, _, ok := e.model.NodeByPath(canon)
	if !ok {
		// Ignored, outside the tree, or raced with a delete. Normal.
		e.log.Debug("file not in galaxy, skipping", "path", ev.FilePath)
		return
	}

	e.recordFileEvent(idx, FileEvent{
		ToolName:  ev.ToolName,
		SessionID: ev.SessionID,
		Timestamp: ev.Timestamp,
	})

	action := MoveAction{
		To:          layout.Position(e.model, idx),
		Node:        idx,
		Description: describeAction(ev.ToolName, filepath.Base(canon)),
	}

	a, ok := e.agents[ev.SessionID]
	if !ok {
		// No preceding session_start; auto-spawn a working agent.
		e.log.Info("auto-spawning agent", "session", ev.SessionID)
		a = e.spawn(ev.SessionID)
	} else if _, despawning := a.State.(Despawning); despawning {
		a.State = Idle{}
	}

	a.Queue = append(a.Queue, action)
	a.CurrentAction = action.Description
}

func (e *Engine) spawn(sessionID string) *Agent {
	a := &Agent{
		SessionID:   sessionID,
		State:       Spawning{},
		Position:    spawnPoint,
		CurrentNode: fsmodel.NoParent,
		Color:       SessionColor(sessionID),
	}
	e.agents[sessionID] = a
	return a
}

func (e *Engine) recordFileEvent(node int, fe FileEvent) {
	events := append(e.history[node], fe)
	if len(events) > maxFileEvents {
		events = events[len(events)-maxFileEvents:]
	}
	e.history[node] = events
}

// Tick advances every agent by dt simulated seconds and returns the
// arrivals that completed this tick.
func (e *Engine) Tick(dt float64) []Arrival {
	var arrivals []Arrival

	for _, id := range e.sessionIDs() {
		a := e.agents[id]
		switch st := a.State.(type) {
		case Spawning:
			st.Timer += dt
			if st.Timer >= e.timings.SpawnDuration {
				a.State = Idle{}
			} else {
				a.State = st
			}

		case Idle:
			if len(a.Queue) > 0 {
				action := a.Queue[0]
				a.Queue = a.Queue[1:]
				a.CurrentNode = action.Node
				a.State = Moving{
					From: a.Position,
					To:   action.To,
					Node: action.Node,
				}
				break
			}
			st.Timer += dt
			if st.Timer >= e.timings.IdleTimeout {
				a.State = Despawning{}
				a.CurrentAction = ""
			} else {
				a.State = st
			}

		case Moving:
			st.Progress += dt / e.timings.MoveDuration
			if st.Progress >= 1 {
				a.Position = st.To
				a.CurrentNode = st.Node
				a.State = Idle{}
				arrivals = append(arrivals, Arrival{SessionID: id, Node: st.Node})
			} else {
				a.Position = st.From.Lerp(st.To, layout.EaseInOutCubic(st.Progress))
				a.State = st
			}

		case Despawning:
			st.Timer += dt
			if st.Timer > e.timings.DespawnDuration {
				st.Timer = e.timings.DespawnDuration
			}
			a.State = st
		}
	}

	return arrivals
}

// Reap removes agents whose despawn completed and returns their session
// ids so callers can drop any per-agent state of their own. Kept apart
// from Tick so a despawn finishing and new activity arriving in the same
// tick favors the activity.
func (e *Engine) Reap() []string {
	var reaped []string
	for _, id := range e.sessionIDs() {
		a := e.agents[id]
		if st, ok := a.State.(Despawning); ok && st.Timer >= e.timings.DespawnDuration {
			e.log.Info("despawning agent", "session", id)
			delete(e.agents, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// Agent looks up one session's agent.
func (e *Engine) Agent(sessionID string) (*Agent, bool) {
	a, ok := e.agents[sessionID]
	return a, ok
}

// Agents returns all live agents ordered by session id.
func (e *Engine) Agents() []*Agent {
	out := make([]*Agent, 0, len(e.agents))
	for _, id := range e.sessionIDs() {
		out = append(out, e.agents[id])
	}
	return out
}

// History returns the bounded event history for a node, newest last.
func (e *Engine) History(node int) []FileEvent {
	return e.history[node]
}

// DropNode clears per-node history after the node leaves the model.
func (e *Engine) DropNode(node int) {
	delete(e.history, node)
}

// Scale returns the render scale factor for an agent, eased through the
// spawn and despawn phases.
func (e *Engine) Scale(a *Agent) float64 {
	switch st := a.State.(type) {
	case Spawning:
		t := clamp01(st.Timer / e.timings.SpawnDuration)
		return layout.EaseInOutCubic(t)
	case Despawning:
		t := clamp01(st.Timer / e.timings.DespawnDuration)
		return 1 - layout.EaseInOutCubic(t)
	default:
		return 1
	}
}

func (e *Engine) sessionIDs() []string {
	ids := make([]string, 0, len(e.agents))
	for id := range e.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// canonicalPath makes a tool-reported path comparable with model paths.
func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return path
}

// describeAction builds the human-readable "what is this agent doing"
// label shown next to a spaceship.
func describeAction(toolName, fileName string) string {
	verb := "Working on"
	switch toolName {
	case "Read":
		verb = "Reading"
	case "Write":
		verb = "Writing"
	case "Edit":
		verb = "Editing"
	case "Grep":
		verb = "Searching"
	case "Glob":
		verb = "Finding"
	}
	return verb + " " + fileName
}
