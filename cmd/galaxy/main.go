// Command galaxy runs the visualization core: it mirrors a directory
// tree, subscribes to the relay's agent-event stream, and advances the
// agent lifecycle engine on a fixed tick, exposing the resulting world
// state over a read-only JSON endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/marcus/galaxy/internal/api"
	"github.com/marcus/galaxy/internal/config"
	"github.com/marcus/galaxy/internal/engine"
	"github.com/marcus/galaxy/internal/sim"
	"github.com/marcus/galaxy/internal/stats"
	"github.com/marcus/galaxy/internal/watch"
	"github.com/marcus/galaxy/internal/wsclient"
)

var (
	configPath = flag.String("config", "", "path to config file")
	watchRoot  = flag.String("root", "", "directory to visualize (overrides config)")
	serverURL  = flag.String("server", "", "relay WebSocket URL (overrides config)")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "galaxy: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *watchRoot != "" {
		cfg.Watch.Root = *watchRoot
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}

	root, err := filepath.Abs(cfg.Watch.Root)
	if err != nil {
		return fmt.Errorf("resolving watch root: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timings := engine.Timings{
		SpawnDuration:   cfg.Engine.SpawnDuration.Seconds(),
		IdleTimeout:     cfg.Engine.IdleTimeout.Seconds(),
		DespawnDuration: cfg.Engine.DespawnDuration.Seconds(),
		MoveDuration:    cfg.Engine.MoveDuration.Seconds(),
	}
	world, err := sim.New(root, timings, logger)
	if err != nil {
		return err
	}

	watcher, err := watch.New(root, world.FSEvents(), logger)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	client := wsclient.New(cfg.Server.URL, world.AgentEvents(), logger)
	client.SetBackoff(cfg.Server.ReconnectMin.Std(), cfg.Server.ReconnectMax.Std())
	go client.Run(ctx)

	var recorder *stats.Recorder
	if cfg.Stats.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Stats.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating stats dir: %w", err)
		}
		recorder, err = stats.Open(cfg.Stats.DBPath)
		if err != nil {
			return fmt.Errorf("opening stats db: %w", err)
		}
		defer recorder.Close()
	}

	if cfg.API.Enabled {
		srv := api.New(cfg.API.Addr, world.Snapshot, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tick := time.Second / time.Duration(cfg.Engine.TickRate)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	logger.Info("galaxy running", "root", root, "server", cfg.Server.URL, "tick", tick)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			res := world.Step(dt)
			if recorder == nil {
				continue
			}
			for _, a := range res.Arrivals {
				if node, ok := world.Model().Node(a.Node); ok {
					if err := recorder.RecordArrival(a.SessionID, node.Path, now); err != nil {
						logger.Warn("recording arrival failed", "err", err)
					}
				}
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
