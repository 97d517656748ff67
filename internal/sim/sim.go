// Package sim is the single-owner tick driver. Each step drains both
// inbound queues without blocking, applies filesystem changes to the
// model (reconciling against gitignore when a .gitignore itself was
// touched), feeds agent events to the lifecycle engine, advances every
// agent, and folds arrivals into highlights and visit counts. Nothing in
// here runs concurrently with itself; producers only touch the queues.
package sim

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/marcus/galaxy/internal/engine"
	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/fsmodel"
	"github.com/marcus/galaxy/internal/highlight"
	"github.com/marcus/galaxy/internal/ignore"
	"github.com/marcus/galaxy/internal/metrics"
	"github.com/marcus/galaxy/internal/queue"
	"github.com/marcus/galaxy/internal/watch"
)

// Sim wires the filesystem model, the gitignore checker, and the agent
// engine behind one Step method.
type Sim struct {
	root string
	log  *slog.Logger

	mu         sync.Mutex
	model      *fsmodel.Model
	engine     *engine.Engine
	checker    *ignore.Checker
	highlights *highlight.Set
	visits     map[int]int

	fsEvents    *queue.Queue[watch.Event]
	agentEvents *queue.Queue[event.AgentEvent]
}

// StepResult reports what one tick produced.
type StepResult struct {
	Arrivals []engine.Arrival
	Reaped   []string
}

// New scans root and returns a ready simulation.
func New(root string, timings engine.Timings, log *slog.Logger) (*Sim, error) {
	if log == nil {
		log = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}

	checker := ignore.NewChecker(root, log)
	model, err := fsmodel.BuildInitial(root, checker.Include)
	if err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}
	log.Info("initial scan complete", "root", root, "nodes", model.Len())
	metrics.ModelNodes.Set(float64(model.Len()))

	return &Sim{
		root:        root,
		log:         log,
		model:       model,
		engine:      engine.New(model, timings, log),
		checker:     checker,
		highlights:  highlight.New(),
		visits:      make(map[int]int),
		fsEvents:    queue.New[watch.Event](),
		agentEvents: queue.New[event.AgentEvent](),
	}, nil
}

// FSEvents is the queue the filesystem watcher feeds.
func (s *Sim) FSEvents() *queue.Queue[watch.Event] { return s.fsEvents }

// AgentEvents is the queue the WebSocket client feeds.
func (s *Sim) AgentEvents() *queue.Queue[event.AgentEvent] { return s.agentEvents }

// Step advances the world by dt simulated seconds.
func (s *Sim) Step(dt float64) StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyFSEvents()

	for _, ev := range s.agentEvents.DrainAll() {
		switch ev.(type) {
		case event.SessionStart:
			metrics.AgentEventsTotal.WithLabelValues("session_start").Inc()
		case event.ToolUse:
			metrics.AgentEventsTotal.WithLabelValues("tool_use").Inc()
		}
		s.engine.Handle(ev)
	}

	arrivals := s.engine.Tick(dt)
	reaped := s.engine.Reap()

	s.highlights.Decay(dt)
	for _, a := range arrivals {
		s.highlights.Bump(a.Node)
		s.visits[a.Node]++
	}

	metrics.ArrivalsTotal.Add(float64(len(arrivals)))
	metrics.ActiveAgents.Set(float64(len(s.engine.Agents())))
	metrics.ModelNodes.Set(float64(s.model.Len()))

	return StepResult{Arrivals: arrivals, Reaped: reaped}
}

// applyFSEvents drains the watcher queue and mutates the model. A
// .gitignore touch anywhere triggers a full reconcile afterwards.
func (s *Sim) applyFSEvents() {
	gitignoreChanged := false

	for _, ev := range s.fsEvents.DrainAll() {
		metrics.FSEventsTotal.WithLabelValues(ev.Kind.String()).Inc()
		if ignore.IsGitignore(ev.Path) {
			gitignoreChanged = true
		}

		switch ev.Kind {
		case watch.Created:
			if s.checker.Ignored(ev.Path, ev.IsDir) {
				continue
			}
			if idx, added := s.model.AddNode(ev.Path, ev.IsDir); added {
				s.log.Debug("node added", "path", ev.Path, "index", idx, "dir", ev.IsDir)
			}
		case watch.Deleted:
			// Always process deletions; the path may have been indexed
			// before it became ignored.
			if idx, removed := s.model.RemoveNode(ev.Path); removed {
				s.dropNode(idx)
				s.log.Debug("node removed", "path", ev.Path, "index", idx)
			}
		case watch.Modified:
			// Content changes don't alter the tree shape.
		}
	}

	if gitignoreChanged {
		s.reconcile()
	}
}

// reconcile recomputes the valid path set from scratch and diffs the
// model against it. O(tree size), acceptable because .gitignore edits
// are rare.
func (s *Sim) reconcile() {
	s.log.Info("gitignore changed, reconciling")
	metrics.ReconcilesTotal.Inc()

	s.checker.Reload()
	valid := s.checker.ValidPaths()

	removed, added := s.model.Reconcile(valid, func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	})
	for _, idx := range removed {
		s.dropNode(idx)
	}
	if len(removed) > 0 || len(added) > 0 {
		s.log.Info("reconciled", "removed", len(removed), "added", len(added))
	}
}

// dropNode clears per-index state external to the model after a removal.
func (s *Sim) dropNode(idx int) {
	s.highlights.Drop(idx)
	s.engine.DropNode(idx)
}

// Model exposes the filesystem model for tests and read-only callers
// running on the tick goroutine.
func (s *Sim) Model() *fsmodel.Model { return s.model }

// Engine exposes the lifecycle engine the same way.
func (s *Sim) Engine() *engine.Engine { return s.engine }
