package cli

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/timetrail/timetrail/internal/domain/tracking"
	"github.com/timetrail/timetrail/internal/resilience"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Repair stale-open and duration-drifted records",
	Long: `Run one maintenance pass: records left open for more than 24 hours (for
example after a crash) are closed an hour past their start, and closed
records whose stored duration disagrees with their span are recomputed.
Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanupRun()
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func cleanupRun() error {
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
	tracker := tracking.NewService(saver, repo, nil, clock, logger)

	rep, err := tracker.RunCleanupPass(context.Background())
	if err != nil {
		return err
	}

	if rep.StaleClosed == 0 && rep.DurationsFixed == 0 {
		ui.Success("nothing to repair")
		return nil
	}
	ui.Success("closed %d stale records, fixed %d durations", rep.StaleClosed, rep.DurationsFixed)
	return nil
}
