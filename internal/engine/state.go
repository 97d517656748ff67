package engine

import "github.com/marcus/galaxy/internal/layout"

// AgentState is the lifecycle of one visiting agent, a closed union:
// Spawning -> Idle <-> Moving, Idle -> Despawning -> removed. Timers are
// simulated seconds accumulated from tick deltas, never wall clock.
type AgentState interface {
	isAgentState()
	Name() string
}

// Spawning is the scale-in phase right after an agent appears.
type Spawning struct {
	Timer float64
}

// Idle is the at-rest state. The timer counts toward the idle timeout
// that begins a despawn; it resets to zero whenever anything happens.
type Idle struct {
	Timer float64
}

// Moving is a constant-duration flight from From to To. Progress runs
// 0..1 regardless of the spatial distance covered.
type Moving struct {
	From     layout.Vec3
	To       layout.Vec3
	Progress float64
	Node     int
}

// Despawning is the scale-out phase. It is cancelled, back to Idle, if
// new activity arrives before the timer completes.
type Despawning struct {
	Timer float64
}

func (Spawning) isAgentState()   {}
func (Idle) isAgentState()       {}
func (Moving) isAgentState()     {}
func (Despawning) isAgentState() {}

func (Spawning) Name() string   { return "spawning" }
func (Idle) Name() string       { return "idle" }
func (Moving) Name() string     { return "moving" }
func (Despawning) Name() string { return "despawning" }

// MoveAction is one queued visit. Agents work their queue strictly FIFO,
// one flight at a time.
type MoveAction struct {
	To          layout.Vec3
	Node        int
	Description string
}

// Timings are the lifecycle durations in simulated seconds. Relative
// ordering matters more than the exact values.
type Timings struct {
	SpawnDuration   float64
	IdleTimeout     float64
	DespawnDuration float64
	MoveDuration    float64 // seconds per move, distance-independent
}

// DefaultTimings returns the stock durations.
func DefaultTimings() Timings {
	return Timings{
		SpawnDuration:   0.5,
		IdleTimeout:     5.0,
		DespawnDuration: 0.5,
		MoveDuration:    1.2,
	}
}
