package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/output"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent activity and storage health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 15, "How many recent records to show")
	rootCmd.AddCommand(statusCmd)
}

func statusRun() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	ctx := context.Background()

	open, err := repo.ListOpen(ctx)
	if err != nil {
		return err
	}
	stale, err := repo.ListStaleOpen(ctx, time.Now().Add(-activity.MaxSpan))
	if err != nil {
		return err
	}
	drifted, err := repo.ListDurationDrift(ctx, activity.DurationTolerance)
	if err != nil {
		return err
	}
	recent, err := repo.List(ctx, activity.ListOptions{Limit: statusLimit})
	if err != nil {
		return err
	}

	if len(recent) == 0 {
		ui.Info("No activity recorded yet in %s.", cfg.DB.Path)
		return nil
	}

	table := ui.Table([]string{"App", "Title", "Start", "Duration", "State"})
	for _, rec := range recent {
		state := "closed"
		if rec.Open() {
			state = output.Yellow("open")
		}
		table.Append([]string{
			rec.AppName,
			truncate(rec.WindowTitle, 40),
			rec.StartTime.Local().Format("2006-01-02 15:04:05"),
			formatSpan(rec),
			state,
		})
	}
	table.Render()
	fmt.Fprintln(ui.Out)

	label := "ok"
	switch {
	case len(open) > 1:
		label = "multiple open records"
	case len(stale) > 0:
		label = "degraded"
	case len(drifted) > 0:
		label = "degraded"
	}
	ui.Info("storage: %s (%d open, %d stale, %d drifted)", output.HealthColor(label), len(open), len(stale), len(drifted))
	if len(stale) > 0 || len(drifted) > 0 {
		ui.Warning("run 'timetrail cleanup' to repair")
	}
	return nil
}

func formatSpan(rec activity.Record) string {
	if rec.Open() {
		return "-"
	}
	return rec.Span().String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
