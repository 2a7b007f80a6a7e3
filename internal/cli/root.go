package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/timetrail/timetrail/internal/config"
	"github.com/timetrail/timetrail/internal/output"
	"github.com/timetrail/timetrail/internal/sqlite"
)

var (
	ui *output.UI

	cfgFile    string
	dbPathFlag string

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "timetrail",
	Short: "Track application focus time",
	Long: `timetrail records which application has focus as a gap-free timeline of
activity spans, persisting them durably even through storage outages and
sleep/wake cycles.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	ui = output.New()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $TIMETRAIL_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (overrides config)")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if dbPathFlag != "" {
		cfg.DB.Path = dbPathFlag
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openRepo(cfg config.Config) (*sqlite.ActivityRepository, error) {
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return sqlite.NewActivityRepository(db), nil
}
