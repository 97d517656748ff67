package relay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/ignore"
)

// MockConfig tunes the synthetic workload generator.
type MockConfig struct {
	Root     string        // directory whose files the fake agents visit
	Sessions int           // concurrent fake sessions
	MinDelay time.Duration // pacing between tool events
	MaxDelay time.Duration
	MinMoves int // tool events per session before it goes quiet
	MaxMoves int
	RestGap  time.Duration // pause between a session ending and a new one starting
}

// DefaultMockConfig returns workable pacing for a demo.
func DefaultMockConfig(root string) MockConfig {
	return MockConfig{
		Root:     root,
		Sessions: 3,
		MinDelay: 300 * time.Millisecond,
		MaxDelay: 3 * time.Second,
		MinMoves: 5,
		MaxMoves: 20,
		RestGap:  8 * time.Second,
	}
}

// Mock generates realistic multi-session activity against the hub: each
// lane runs session after session, announcing a start and then visiting
// randomly chosen files with randomized pacing.
type Mock struct {
	hub   *Hub
	cfg   MockConfig
	log   *slog.Logger
	files []string
}

// NewMock walks cfg.Root (gitignore respected) and returns a generator
// over the files found there.
func NewMock(hub *Hub, cfg MockConfig, log *slog.Logger) (*Mock, error) {
	if log == nil {
		log = slog.Default()
	}

	checker := ignore.NewChecker(cfg.Root, log)
	var files []string
	for path := range checker.ValidPaths() {
		// Visits target files; directories only anchor the layout.
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to visit under %s", cfg.Root)
	}

	log.Info("mock workload ready", "root", cfg.Root, "files", len(files), "sessions", cfg.Sessions)
	return &Mock{hub: hub, cfg: cfg, log: log, files: files}, nil
}

// Run drives all session lanes until ctx is cancelled.
func (m *Mock) Run(ctx context.Context) {
	for i := 0; i < m.cfg.Sessions; i++ {
		go m.lane(ctx, i, rand.New(rand.NewSource(time.Now().UnixNano()+int64(i))))
	}
	<-ctx.Done()
}

func (m *Mock) lane(ctx context.Context, lane int, rng *rand.Rand) {
	for {
		sessionID := fmt.Sprintf("mock-%d-%s", lane, uuid.NewString()[:8])
		m.runSession(ctx, sessionID, rng)
		if !sleepCtx(ctx, m.cfg.RestGap) {
			return
		}
	}
}

func (m *Mock) runSession(ctx context.Context, sessionID string, rng *rand.Rand) {
	m.emit(event.SessionStart{
		SessionID: sessionID,
		CWD:       m.cfg.Root,
		Model:     "mock",
	})

	moves := m.cfg.MinMoves + rng.Intn(m.cfg.MaxMoves-m.cfg.MinMoves+1)
	for i := 0; i < moves; i++ {
		delay := m.cfg.MinDelay + time.Duration(rng.Int63n(int64(m.cfg.MaxDelay-m.cfg.MinDelay)))
		if !sleepCtx(ctx, delay) {
			return
		}
		m.emit(event.ToolUse{
			SessionID: sessionID,
			ToolName:  pickTool(rng),
			FilePath:  m.files[rng.Intn(len(m.files))],
		})
	}
}

func (m *Mock) emit(ev event.AgentEvent) {
	switch v := ev.(type) {
	case event.SessionStart:
		v.Timestamp = time.Now().UTC().Format(time.RFC3339)
		ev = v
	case event.ToolUse:
		v.Timestamp = time.Now().UTC().Format(time.RFC3339)
		ev = v
	}
	msg, err := event.Marshal(ev)
	if err != nil {
		m.log.Warn("mock marshal failed", "err", err)
		return
	}
	m.hub.Broadcast(msg)
}

// pickTool returns a weighted tool name: mostly reads, some edits,
// occasional writes and searches.
func pickTool(rng *rand.Rand) string {
	switch n := rng.Intn(100); {
	case n < 45:
		return "Read"
	case n < 70:
		return "Edit"
	case n < 85:
		return "Write"
	case n < 95:
		return "Grep"
	default:
		return "Glob"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
