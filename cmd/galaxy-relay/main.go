// Command galaxy-relay accepts tool-use and session-start notifications
// over HTTP and fans them out to every WebSocket subscriber, stamping a
// server timestamp on the way through. With -mock it generates a
// synthetic multi-session workload instead of waiting for real hooks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/galaxy/internal/relay"
)

var (
	addr         = flag.String("addr", "127.0.0.1:8080", "listen address")
	mock         = flag.Bool("mock", false, "generate a synthetic workload")
	mockRoot     = flag.String("mock-root", ".", "directory the mock agents visit")
	mockSessions = flag.Int("mock-sessions", 3, "concurrent mock sessions")
	debug        = flag.Bool("debug", false, "enable debug logging")
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
		fmt.Fprintf(os.Stderr, "galaxy-relay: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := relay.NewHub(logger)
	server := relay.NewServer(hub, logger)

	if *mock {
		cfg := relay.DefaultMockConfig(*mockRoot)
		cfg.Sessions = *mockSessions
		gen, err := relay.NewMock(hub, cfg, logger)
		if err != nil {
			return err
		}
		go gen.Run(ctx)
	}

	srv := &http.Server{
		Addr:        *addr,
		Handler:     server.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", *addr, "mock", *mock)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}
