// Package fsmodel maintains an index-addressable mirror of a watched
// directory tree. Node indices are stable for the lifetime of the model:
// removed nodes keep their slot so that cross-references held elsewhere
// (an agent's current target, highlight state) never dangle.
package fsmodel

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// NoParent marks a node without an indexed parent.
const NoParent = -1

// Node is one entry in the watched tree.
type Node struct {
	Path     string
	Name     string
	IsDir    bool
	Depth    int
	Children []int
	Parent   int // NoParent for the root
	Removed  bool
}

// Model owns the node arena plus the path lookup. It is mutated only by
// the tick driver; no internal locking.
type Model struct {
	nodes []Node
	index map[string]int
	root  int
}

// New returns an empty model.
func New() *Model {
	return &Model{
		index: make(map[string]int),
		root:  NoParent,
	}
}

// BuildInitial walks the tree rooted at root once and returns a populated
// model. include filters entries (gitignore rules live in the caller);
// returning false for a directory prunes its subtree. The walk visits
// parents before children, so parent resolution via the path lookup always
// succeeds. Symlinks are not followed.
func BuildInitial(root string, include func(path string, isDir bool) bool) (*Model, error) {
	m := New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Raced with a delete or unreadable entry: skip.
			return nil
		}
		isDir := d.IsDir()
		if include != nil && !include(path, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		m.add(path, isDir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// add appends a node unconditionally, resolving the parent via the lookup.
func (m *Model) add(path string, isDir bool) int {
	idx := len(m.nodes)

	parent := NoParent
	depth := 0
	if p, ok := m.index[filepath.Dir(path)]; ok && filepath.Dir(path) != path {
		parent = p
		depth = m.nodes[p].Depth + 1
	}

	m.nodes = append(m.nodes, Node{
		Path:   path,
		Name:   filepath.Base(path),
		IsDir:  isDir,
		Depth:  depth,
		Parent: parent,
	})
	m.index[path] = idx

	if parent != NoParent {
		m.nodes[parent].Children = append(m.nodes[parent].Children, idx)
	} else if m.root == NoParent {
		m.root = idx
	}
	return idx
}

// AddNode indexes a newly observed path. It is a no-op when the path is
// already present (duplicate creates from the watcher are expected); the
// second return reports whether a node was added.
func (m *Model) AddNode(path string, isDir bool) (int, bool) {
	if _, ok := m.index[path]; ok {
		return NoParent, false
	}
	return m.add(path, isDir), true
}

// RemoveNode logically removes a path: the lookup entry goes away, the
// node is detached from its parent's child list, and its own child list
// is cleared. The slot is retained, never reused. Returns the removed
// index so callers can clean up per-index state of their own.
func (m *Model) RemoveNode(path string) (int, bool) {
	idx, ok := m.index[path]
	if !ok {
		return NoParent, false
	}
	delete(m.index, path)

	n := &m.nodes[idx]
	if n.Parent != NoParent {
		siblings := m.nodes[n.Parent].Children
		for i, c := range siblings {
			if c == idx {
				m.nodes[n.Parent].Children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	n.Children = n.Children[:0]
	n.Removed = true
	return idx, true
}

// Node returns the node at idx. Absence is a normal outcome, not an error.
func (m *Model) Node(idx int) (*Node, bool) {
	if idx < 0 || idx >= len(m.nodes) {
		return nil, false
	}
	return &m.nodes[idx], true
}

// NodeByPath resolves a path to its index and node. Paths outside the
// watched scope miss silently.
func (m *Model) NodeByPath(path string) (int, *Node, bool) {
	idx, ok := m.index[path]
	if !ok {
		return NoParent, nil, false
	}
	return idx, &m.nodes[idx], true
}

// Root returns the root index, if one has been observed.
func (m *Model) Root() (int, bool) {
	if m.root == NoParent {
		return NoParent, false
	}
	return m.root, true
}

// Len returns the total number of slots, removed ones included.
func (m *Model) Len() int { return len(m.nodes) }

// Paths returns the currently indexed paths.
func (m *Model) Paths() []string {
	out := make([]string, 0, len(m.index))
	for p := range m.index {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reconcile brings the model in line with a freshly computed set of valid
// paths: every indexed path missing from the set is removed, every set
// member not yet indexed is added. isDir classifies newly added paths; a
// nil isDir treats unknown paths as files. Additions happen in sorted
// order so parents are indexed before their children.
func (m *Model) Reconcile(valid map[string]struct{}, isDir func(path string) bool) (removed, added []int) {
	var stale []string
	for p := range m.index {
		if _, ok := valid[p]; !ok {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)
	for _, p := range stale {
		if idx, ok := m.RemoveNode(p); ok {
			removed = append(removed, idx)
		}
	}

	var fresh []string
	for p := range valid {
		if _, ok := m.index[p]; !ok {
			fresh = append(fresh, p)
		}
	}
	sort.Strings(fresh)
	for _, p := range fresh {
		dir := false
		if isDir != nil {
			dir = isDir(p)
		}
		if idx, ok := m.AddNode(p, dir); ok {
			added = append(added, idx)
		}
	}
	return removed, added
}
