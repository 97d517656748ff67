package sim

import (
	"sort"

	"github.com/marcus/galaxy/internal/engine"
	"github.com/marcus/galaxy/internal/layout"
)

// Snapshot is the plain-data view of the world handed to renderers and
// the state endpoint. It carries interpolation inputs (from, to,
// progress) alongside the already-eased position so simple consumers can
// draw without re-deriving anything.
type Snapshot struct {
	Root       string           `json:"root"`
	Nodes      int              `json:"nodes"`
	Agents     []AgentSnapshot  `json:"agents"`
	Highlights []NodeHighlight  `json:"highlights,omitempty"`
	Visits     []NodeVisitCount `json:"visits,omitempty"`
}

// AgentSnapshot is one agent's render state.
type AgentSnapshot struct {
	SessionID string       `json:"session_id"`
	State     string       `json:"state"`
	Position  layout.Vec3  `json:"position"`
	From      *layout.Vec3 `json:"from,omitempty"`
	To        *layout.Vec3 `json:"to,omitempty"`
	Progress  float64      `json:"progress,omitempty"`
	Scale     float64      `json:"scale"`
	Color     string       `json:"color"`
	Action    string       `json:"action,omitempty"`
	Node      int          `json:"node"`
	Queued    int          `json:"queued"`
}

// NodeHighlight is one node's current highlight intensity.
type NodeHighlight struct {
	Node      int     `json:"node"`
	Intensity float64 `json:"intensity"`
}

// NodeVisitCount is one node's accumulated arrival count.
type NodeVisitCount struct {
	Node  int    `json:"node"`
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Snapshot captures the current world state. Safe to call from the HTTP
// goroutine; it serializes against Step.
func (s *Sim) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Root:  s.root,
		Nodes: s.model.Len(),
	}

	for _, a := range s.engine.Agents() {
		as := AgentSnapshot{
			SessionID: a.SessionID,
			State:     a.State.Name(),
			Position:  a.Position,
			Scale:     s.engine.Scale(a),
			Color:     a.Color.Hex(),
			Action:    a.CurrentAction,
			Node:      a.CurrentNode,
			Queued:    len(a.Queue),
		}
		if mv, ok := a.State.(engine.Moving); ok {
			from, to := mv.From, mv.To
			as.From = &from
			as.To = &to
			as.Progress = mv.Progress
		}
		snap.Agents = append(snap.Agents, as)
	}

	for node, intensity := range s.highlights.Active() {
		snap.Highlights = append(snap.Highlights, NodeHighlight{Node: node, Intensity: intensity})
	}

	for node, count := range s.visits {
		path := ""
		if n, ok := s.model.Node(node); ok {
			path = n.Path
		}
		snap.Visits = append(snap.Visits, NodeVisitCount{Node: node, Path: path, Count: count})
	}

	sort.Slice(snap.Highlights, func(i, j int) bool {
		return snap.Highlights[i].Node < snap.Highlights[j].Node
	})
	sort.Slice(snap.Visits, func(i, j int) bool {
		return snap.Visits[i].Node < snap.Visits[j].Node
	})
	return snap
}
