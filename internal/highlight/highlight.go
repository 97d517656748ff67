// Package highlight tracks the visual emphasis a node receives when an
// agent arrives at it: a fixed intensity bump that decays linearly over
// the following ticks.
package highlight

const (
	bumpIntensity = 6.0
	decayPerSec   = 1.5
)

// Set maps node index to current highlight intensity. Owned by the tick
// driver; no locking.
type Set struct {
	m map[int]float64
}

// New returns an empty set.
func New() *Set {
	return &Set{m: make(map[int]float64)}
}

// Bump sets a node to full intensity, refreshing any existing highlight.
func (s *Set) Bump(node int) {
	s.m[node] = bumpIntensity
}

// Decay advances all highlights by dt seconds, dropping the ones that
// faded out.
func (s *Set) Decay(dt float64) {
	for node, v := range s.m {
		v -= decayPerSec * dt
		if v <= 0 {
			delete(s.m, node)
		} else {
			s.m[node] = v
		}
	}
}

// Intensity returns a node's current intensity, zero when unhighlighted.
func (s *Set) Intensity(node int) float64 {
	return s.m[node]
}

// Drop discards a node's highlight, used when the node leaves the model.
func (s *Set) Drop(node int) {
	delete(s.m, node)
}

// Active returns a copy of all live highlights.
func (s *Set) Active() map[int]float64 {
	out := make(map[int]float64, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// Len returns the number of highlighted nodes.
func (s *Set) Len() int { return len(s.m) }
