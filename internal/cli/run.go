package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/timetrail/timetrail/internal/domain/tracking"
	"github.com/timetrail/timetrail/internal/resilience"
	"github.com/timetrail/timetrail/internal/source"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track focus activity from an event feed on stdin",
	Long: `Run the tracker against a JSON-lines event feed on stdin until the feed
ends or the process receives SIGINT/SIGTERM. Each line is one event:

  {"type":"focus","app_id":"org.mozilla.firefox","app_name":"Firefox","window_title":"..."}
  {"type":"suspend"}
  {"type":"resume"}

A platform shim that captures real OS focus and power events can pipe them
in the same encoding.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	clock := clockwork.NewRealClock()
	saver := resilience.NewSaver(repo, clock, logger, resilience.DefaultConfig())
	feed := source.NewFeed()
	tracker := tracking.NewService(saver, repo, feed, clock, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if err := tracker.Start(ctx); err != nil {
		return err
	}

	var healthSrv *http.Server
	if cfg.Health.Addr != "" {
		healthSrv = serveHealth(cfg.Health.Addr, tracker, logger)
	}

	replayDone := make(chan error, 1)
	go func() {
		replayDone <- source.Replay(ctx, os.Stdin, feed)
	}()

	select {
	case <-stop:
		logger.Info("shutting down")
	case err := <-replayDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event feed failed", "error", err)
		}
	}
	cancel()

	if healthSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("health endpoint shutdown error", "error", err)
		}
	}

	return tracker.Stop(context.Background())
}

func serveHealth(addr string, tracker *tracking.Service, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := tracker.Health()
		w.Header().Set("Content-Type", "application/json")
		if !h.IsHealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("health endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health endpoint error", "error", err)
		}
	}()
	return srv
}
