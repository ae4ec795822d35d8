package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/kanadrill/internal/kana"
	"github.com/verte-zerg/kanadrill/internal/logging"
	"github.com/verte-zerg/kanadrill/internal/model"
)

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# kanadrill configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# script = %q       # hiragana, katakana or mixed
# subset = %q           # main, dakuten, combination or all
# recent-window = %d        # Attempts shown in recent figures
# repair-ema = false        # Rewrite averages that drifted from the attempt log
# seed = 0                  # Fixed seed for item selection (0 = random)

[storage]
# backend = %q        # sqlite or bolt
# path = ""                 # Database path (default under XDG_DATA_HOME)

[log]
# level = %q            # debug, info, warn or error
# file = ""                 # Log file (default under XDG_STATE_HOME)
`,
		defaultScript,
		defaultSubset,
		defaultRecentWindow,
		defaultBackend,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if _, err := kana.ParseScript(cfg.Script); err != nil {
		return fmt.Errorf("--script: %w", err)
	}
	if _, err := kana.ParseSubset(cfg.Subset); err != nil {
		return fmt.Errorf("--subset: %w", err)
	}
	if cfg.RecentWindow <= 0 {
		return fmt.Errorf("--recent-window must be > 0")
	}
	return nil
}

func validateRuntimeConfig(storage model.StorageConfig, logCfg model.LogConfig) error {
	switch storage.Backend {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("--backend must be sqlite or bolt, got %q", storage.Backend)
	}
	if _, err := logging.ParseLevel(logCfg.Level); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
