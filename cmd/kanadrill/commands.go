package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kanadrill/internal/config"
	"github.com/verte-zerg/kanadrill/internal/kana"
	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/snapshot"
	"github.com/verte-zerg/kanadrill/internal/stats"
	"github.com/verte-zerg/kanadrill/internal/statsui"
)

var (
	catalogScript string
	catalogSubset string

	statsScript      string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsTop         int
	statsPlain       bool

	verifyRepair bool

	exportOut string

	importIn     string
	importRepair bool
	importForce  bool
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the kana of a script and subset",
		Args:  cobra.NoArgs,
		RunE:  runCatalogCmd,
	}
	cmd.Flags().StringVar(&catalogScript, "script", defaultScript, "kana script: hiragana, katakana or mixed")
	cmd.Flags().StringVar(&catalogSubset, "subset", defaultSubset, "kana subset: main, dakuten, combination or all")
	return cmd
}

func runCatalogCmd(cmd *cobra.Command, _ []string) error {
	script, err := kana.ParseScript(catalogScript)
	if err != nil {
		return err
	}
	subset, err := kana.ParseSubset(catalogSubset)
	if err != nil {
		return err
	}
	items, err := kana.Catalog(script, subset)
	if err != nil {
		return err
	}
	return writeCatalog(cmd.OutOrStdout(), items)
}

func writeCatalog(w io.Writer, items []practice.Item) error {
	width := 0
	for _, item := range items {
		width = max(width, runewidth.StringWidth(item.ID))
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(item.ID, width), item.Answer); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsScript, "script", "", "script filter for sessions")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&statsTop, "top", stats.DefaultTop, "items listed per ranking")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig()
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if statsPlain {
		report, err := stats.BuildReport(context.Background(), e.backend, cfg)
		if err != nil {
			return err
		}
		return renderPlainStats(cmd.OutOrStdout(), report)
	}

	m := statsui.NewModel(e.backend, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func statsConfig() (model.StatsConfig, error) {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	script := ""
	if statsScript != "" {
		parsed, err := kana.ParseScript(statsScript)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("--script: %w", err)
		}
		script = string(parsed)
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	if statsTop <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--top must be > 0")
	}
	return model.StatsConfig{
		Script:      script,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Top:         statsTop,
	}, nil
}

func renderPlainStats(w io.Writer, r stats.Report) error {
	if err := stats.RenderSummary(w, r.Sessions, r.Totals); err != nil {
		return err
	}
	if err := stats.RenderRankings(w, r.Weakest, r.Slowest); err != nil {
		return err
	}
	if err := stats.RenderMistakes(w, r.Mistakes); err != nil {
		return err
	}
	return stats.RenderCurves(w, r, 0, 0, false)
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored averages against the attempt log",
		Args:  cobra.NoArgs,
		RunE:  runVerifyCmd,
	}
	cmd.Flags().BoolVar(&verifyRepair, "repair", false, "rewrite drifted averages")
	return cmd
}

func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	h, drifts, err := loadHistory(ctx, e, verifyRepair)
	if err != nil {
		return err
	}
	if err := writeDrifts(cmd.OutOrStdout(), len(h.Items), drifts); err != nil {
		return err
	}
	if verifyRepair && len(drifts) > 0 {
		if err := e.backend.SaveHistory(ctx, h); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
		logErrf("Repaired %d item(s)\n", len(drifts))
	}
	return nil
}

func writeDrifts(w io.Writer, items int, drifts []practice.Drift) error {
	if len(drifts) == 0 {
		_, err := fmt.Fprintf(w, "%d item(s) checked, all averages match the attempt log\n", items)
		return err
	}
	if _, err := fmt.Fprintf(w, "%d of %d item(s) drifted:\n", len(drifts), items); err != nil {
		return err
	}
	for _, d := range drifts {
		if _, err := fmt.Fprintf(w, "  %s\n", d); err != nil {
			return err
		}
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the practice history as JSON",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file (- for stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	h, err := e.backend.LoadHistory(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	now := time.Now()
	if exportOut == "" || exportOut == "-" {
		return snapshot.Write(cmd.OutOrStdout(), h, now)
	}
	if err := writeSnapshotFile(exportOut, h, now); err != nil {
		return err
	}
	logErrf("Wrote %s\n", exportOut)
	return nil
}

func writeSnapshotFile(path string, h *practice.History, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "kanadrill-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := snapshot.Write(writer, h, now); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the practice history with a JSON export",
		Args:  cobra.NoArgs,
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVarP(&importIn, "in", "i", "", "export file to read (- for stdin)")
	cmd.Flags().BoolVar(&importRepair, "repair", false, "rewrite drifted averages while importing")
	cmd.Flags().BoolVar(&importForce, "force", false, "overwrite an existing history")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runImportCmd(cmd *cobra.Command, _ []string) error {
	h, drifts, err := readSnapshot(cmd.InOrStdin(), importIn, importRepair)
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	existing, err := e.backend.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(existing.Items) > 0 && !importForce {
		return fmt.Errorf("history already has %d item(s) (use --force to overwrite)", len(existing.Items))
	}
	for _, d := range drifts {
		e.logger.Warn("imported averages drifted from attempt log", "item", d.ItemID, "repaired", importRepair)
	}
	if err := e.backend.SaveHistory(ctx, h); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	logErrf("Imported %d item(s)\n", len(h.Items))
	if len(drifts) > 0 && !importRepair {
		logErrln("Some imported averages drifted from their attempt log. Run: kanadrill verify --repair")
	}
	return nil
}

func readSnapshot(stdin io.Reader, path string, repair bool) (*practice.History, []practice.Drift, error) {
	if path == "-" {
		return snapshot.Read(stdin, repair)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close export: %v\n", cerr)
		}
	}()
	return snapshot.Read(bufio.NewReader(f), repair)
}
