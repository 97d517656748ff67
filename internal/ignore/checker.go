// Package ignore answers gitignore questions for a watched tree. Nested
// .gitignore files and .git/info/exclude are honored; the .git directory
// itself is never part of the galaxy. A checker that fails to load
// patterns degrades to "nothing ignored" so the tree stays visible.
package ignore

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Checker matches paths under a fixed root against the tree's gitignore
// rules. Reload is safe to call while other goroutines query Ignored.
type Checker struct {
	root string
	log  *slog.Logger

	mu      sync.RWMutex
	matcher gitignore.Matcher
}

// NewChecker loads the tree's ignore patterns and returns a checker.
func NewChecker(root string, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	c := &Checker{root: root, log: log}
	c.Reload()
	return c
}

// Root returns the watched root.
func (c *Checker) Root() string { return c.root }

// Reload re-reads all .gitignore files under the root. Called whenever a
// .gitignore is created, deleted, or modified.
func (c *Checker) Reload() {
	patterns, err := gitignore.ReadPatterns(osfs.New(c.root), nil)
	if err != nil {
		c.log.Debug("gitignore patterns unavailable, treating tree as unignored", "root", c.root, "err", err)
		patterns = nil
	}

	c.mu.Lock()
	c.matcher = gitignore.NewMatcher(patterns)
	c.mu.Unlock()
}

// Ignored reports whether path is excluded from the model. The root
// itself is never ignored; anything under .git always is.
func (c *Checker) Ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == "." {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if parts[0] == ".git" {
		return true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matcher.Match(parts, isDir)
}

// Include is the complement of Ignored, in the shape fsmodel.BuildInitial
// expects.
func (c *Checker) Include(path string, isDir bool) bool {
	return !c.Ignored(path, isDir)
}

// ValidPaths walks the tree and returns the set of currently non-ignored
// paths, the root included. Ignored directories are pruned whole. Walk
// errors degrade to skips.
func (c *Checker) ValidPaths() map[string]struct{} {
	valid := make(map[string]struct{})
	_ = filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		isDir := d.IsDir()
		if c.Ignored(path, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		valid[path] = struct{}{}
		return nil
	})
	return valid
}

// IsGitignore reports whether path names a .gitignore file.
func IsGitignore(path string) bool {
	return filepath.Base(path) == ".gitignore"
}
