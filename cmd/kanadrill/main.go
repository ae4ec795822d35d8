// Package main provides the CLI entrypoint for kanadrill.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kanadrill/internal/boltstore"
	"github.com/verte-zerg/kanadrill/internal/config"
	"github.com/verte-zerg/kanadrill/internal/kana"
	"github.com/verte-zerg/kanadrill/internal/logging"
	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/store"
	"github.com/verte-zerg/kanadrill/internal/tui"
)

const (
	defaultScript       = "hiragana"
	defaultSubset       = "main"
	defaultRecentWindow = 20
	defaultCurveWindow  = 20
	defaultBackend      = "sqlite"
	defaultLogLevel     = "info"
)

var (
	practiceScript       string
	practiceSubset       string
	practiceRecentWindow int
	practiceRepairEMA    bool
	practiceSeed         int64

	storageBackend string
	storagePath    string
	logLevel       string
	logFile        string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kanadrill",
		Short:         "TUI kana to romaji drill trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceScript, "script", defaultScript, "kana script: hiragana, katakana or mixed")
	rootCmd.Flags().StringVar(&practiceSubset, "subset", defaultSubset, "kana subset: main, dakuten, combination or all")
	rootCmd.Flags().IntVar(&practiceRecentWindow, "recent-window", defaultRecentWindow, "attempts shown in recent figures")
	rootCmd.Flags().BoolVar(&practiceRepairEMA, "repair-ema", false, "rewrite averages that drifted from the attempt log")
	rootCmd.Flags().Int64Var(&practiceSeed, "seed", 0, "seed for item selection (0 picks a random seed)")

	rootCmd.PersistentFlags().StringVar(&storageBackend, "backend", defaultBackend, "storage backend: sqlite or bolt")
	rootCmd.PersistentFlags().StringVar(&storagePath, "db", "", "database path (default under $XDG_DATA_HOME/kanadrill)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default under $XDG_STATE_HOME/kanadrill)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())

	return rootCmd
}

// env holds what every command needs once config is applied.
type env struct {
	file    config.FileConfig
	logger  *slog.Logger
	backend store.Backend
	closers []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			logErrf("failed to close: %v\n", err)
		}
	}
}

// setup loads the config file, applies it under explicit flags, and opens
// the log and the storage backend.
func setup(cmd *cobra.Command) (*env, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "backend", &storageBackend, fileCfg.Storage.Backend)
	applyStringConfig(cmd, "db", &storagePath, fileCfg.Storage.Path)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	storageCfg := model.StorageConfig{Backend: storageBackend, Path: storagePath}
	logCfg := model.LogConfig{Level: logLevel, File: logFile}
	if err := validateRuntimeConfig(storageCfg, logCfg); err != nil {
		return nil, err
	}
	if storageCfg.Path == "" {
		storageCfg.Path = config.DefaultDBPath(storageCfg.Backend)
	}
	if logCfg.File == "" {
		logCfg.File = config.DefaultLogPath()
	}

	e := &env{file: fileCfg}
	logger, closer, err := logging.Open(logCfg.File, logCfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	e.logger = logger
	e.closers = append(e.closers, closer)

	backend, err := openBackend(storageCfg)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.backend = backend
	e.closers = append(e.closers, backend)
	logger.Debug("storage opened", "backend", storageCfg.Backend, "path", storageCfg.Path)
	return e, nil
}

func openBackend(cfg model.StorageConfig) (store.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		st, err := store.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	case "bolt":
		st, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (use sqlite or bolt)", cfg.Backend)
	}
}

// loadHistory reads the history and reports averages that drifted from the
// attempt log. They are rewritten only when repair is set.
func loadHistory(ctx context.Context, e *env, repair bool) (*practice.History, []practice.Drift, error) {
	h, err := e.backend.LoadHistory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	drifts := h.Validate(repair)
	for _, d := range drifts {
		e.logger.Warn("stored averages drifted from attempt log",
			"item", d.ItemID,
			"stored_response", d.StoredResponse,
			"recomputed_response", d.RecomputedResponse,
			"stored_accuracy", d.StoredAccuracy,
			"recomputed_accuracy", d.RecomputedAccuracy,
			"repaired", repair,
		)
	}
	return h, drifts, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	fileCfg := e.file
	applyStringConfig(cmd, "script", &practiceScript, fileCfg.Practice.Script)
	applyStringConfig(cmd, "subset", &practiceSubset, fileCfg.Practice.Subset)
	applyIntConfig(cmd, "recent-window", &practiceRecentWindow, fileCfg.Practice.RecentWindow)
	applyBoolConfig(cmd, "repair-ema", &practiceRepairEMA, fileCfg.Practice.RepairEMA)
	applyInt64Config(cmd, "seed", &practiceSeed, fileCfg.Practice.Seed)

	cfg := model.Config{
		Script:       practiceScript,
		Subset:       practiceSubset,
		RecentWindow: practiceRecentWindow,
		RepairEMA:    practiceRepairEMA,
		Seed:         practiceSeed,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	script, err := kana.ParseScript(cfg.Script)
	if err != nil {
		return err
	}
	subset, err := kana.ParseSubset(cfg.Subset)
	if err != nil {
		return err
	}
	cfg.Script, cfg.Subset = string(script), string(subset)
	catalog, err := kana.Catalog(script, subset)
	if err != nil {
		return err
	}

	h, drifts, err := loadHistory(context.Background(), e, cfg.RepairEMA)
	if err != nil {
		return err
	}
	if len(drifts) > 0 {
		if !cfg.RepairEMA {
			logErrf("%d item(s) have averages that drifted from their attempt log; run `kanadrill verify` for details\n", len(drifts))
		} else if err := e.backend.SaveHistory(context.Background(), h); err != nil {
			return fmt.Errorf("failed to save repaired history: %w", err)
		}
	}

	observer := logging.NewObserver(e.logger)
	h.SetObserver(observer)
	sampler := practice.NewSampler()
	if cfg.Seed != 0 {
		sampler = practice.NewSeededSampler(cfg.Seed)
	}
	selector := practice.NewSelector(
		practice.WithSampler(sampler),
		practice.WithObserver(observer),
	)

	e.logger.Info("practice started", "script", cfg.Script, "subset", cfg.Subset, "items", len(catalog))
	m := tui.NewModel(tui.Options{
		Config:   cfg,
		Catalog:  catalog,
		History:  h,
		Selector: selector,
		Backend:  e.backend,
		Logger:   e.logger,
		NewID:    uuid.NewString,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
