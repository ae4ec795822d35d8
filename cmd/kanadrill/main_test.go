package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/kanadrill/internal/config"
	"github.com/verte-zerg/kanadrill/internal/kana"
	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/stats"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func sampleHistory(t *testing.T) *practice.History {
	t.Helper()
	h := practice.NewHistory(t0)
	require.NoError(t, h.RecordAttempt("し", "si", false, 1800, t0))
	require.NoError(t, h.RecordAttempt("し", "shi", true, 900, t0.Add(time.Second)))
	require.NoError(t, h.RecordAttempt("あ", "a", true, 400, t0.Add(2*time.Second)))
	h.LastSession = t0.Add(time.Minute)
	return h
}

func TestValidateConfig(t *testing.T) {
	valid := model.Config{Script: "hiragana", Subset: "main", RecentWindow: 10}
	require.NoError(t, validateConfig(valid))

	bad := valid
	bad.RecentWindow = 0
	assert.EqualError(t, validateConfig(bad), "--recent-window must be > 0")

	bad = valid
	bad.Script = "kanji"
	assert.ErrorIs(t, validateConfig(bad), kana.ErrUnknownScript)

	bad = valid
	bad.Subset = "rare"
	assert.ErrorIs(t, validateConfig(bad), kana.ErrUnknownSubset)
}

func TestValidateRuntimeConfig(t *testing.T) {
	require.NoError(t, validateRuntimeConfig(model.StorageConfig{Backend: "bolt"}, model.LogConfig{Level: "debug"}))
	assert.Error(t, validateRuntimeConfig(model.StorageConfig{Backend: "csv"}, model.LogConfig{}))
	assert.Error(t, validateRuntimeConfig(model.StorageConfig{Backend: "sqlite"}, model.LogConfig{Level: "loud"}))
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var b strings.Builder
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
		}
		b.WriteString(line + "\n")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Practice.Script)
	assert.Equal(t, defaultScript, *cfg.Practice.Script)
	require.NotNil(t, cfg.Practice.RecentWindow)
	assert.Equal(t, defaultRecentWindow, *cfg.Practice.RecentWindow)
	require.NotNil(t, cfg.Storage.Backend)
	assert.Equal(t, defaultBackend, *cfg.Storage.Backend)
	require.NotNil(t, cfg.Log.Level)
	assert.Equal(t, defaultLogLevel, *cfg.Log.Level)
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"sqlite", "bolt"} {
		backend, err := openBackend(model.StorageConfig{Backend: name, Path: filepath.Join(dir, name+".db")})
		require.NoError(t, err, name)

		h, err := backend.LoadHistory(t.Context())
		require.NoError(t, err, name)
		assert.Empty(t, h.Items, name)
		require.NoError(t, backend.Close(), name)
	}

	_, err := openBackend(model.StorageConfig{Backend: "csv", Path: filepath.Join(dir, "x")})
	assert.Error(t, err)
}

func TestWriteCatalog(t *testing.T) {
	items, err := kana.Catalog(kana.Hiragana, kana.Combination)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeCatalog(&buf, items))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, len(items))
	assert.Equal(t, "きゃ  kya", lines[0])
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	h := sampleHistory(t)
	path := filepath.Join(t.TempDir(), "out", "history.json")
	require.NoError(t, writeSnapshotFile(path, h, t0))

	got, drifts, err := readSnapshot(nil, path, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.Equal(t, h.IDs(), got.IDs())
	assert.Equal(t, 2, got.Items["し"].Appearances)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadSnapshotFromStdin(t *testing.T) {
	var buf bytes.Buffer
	h := sampleHistory(t)
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, writeSnapshotFile(path, h, t0))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	buf.Write(data)

	got, _, err := readSnapshot(&buf, "-", false)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestWriteDrifts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDrifts(&buf, 3, nil))
	assert.Equal(t, "3 item(s) checked, all averages match the attempt log\n", buf.String())

	buf.Reset()
	drift := practice.Drift{ItemID: "し", StoredResponse: 5, RecomputedResponse: 1080}
	require.NoError(t, writeDrifts(&buf, 3, []practice.Drift{drift}))
	assert.Contains(t, buf.String(), "1 of 3 item(s) drifted:")
	assert.Contains(t, buf.String(), "  し: response")
}

func TestStatsConfig(t *testing.T) {
	t.Cleanup(func() {
		statsScript, statsSince, statsLast = "", "", 0
		statsCurveWindow, statsTop = defaultCurveWindow, stats.DefaultTop
	})
	statsScript, statsSince, statsLast = "k", "2025-06-01", 5
	statsCurveWindow, statsTop = 10, 3

	cfg, err := statsConfig()
	require.NoError(t, err)
	assert.Equal(t, "katakana", cfg.Script)
	require.NotNil(t, cfg.Since)
	assert.Equal(t, 2025, cfg.Since.Year())
	assert.Equal(t, 5, cfg.Last)
	assert.Equal(t, 3, cfg.Top)

	statsSince = "June"
	_, err = statsConfig()
	assert.ErrorContains(t, err, "invalid --since value")

	statsSince, statsCurveWindow = "", 0
	_, err = statsConfig()
	assert.EqualError(t, err, "--curve-window must be > 0")
}

func TestRenderPlainStats(t *testing.T) {
	sessions := []model.SessionRecord{{
		ID: "s1", StartedAt: t0, EndedAt: t0.Add(time.Minute), Script: "hiragana",
		Subset: "main", Attempts: 3, Successes: 2, Failures: 1, DurationMs: 60000,
	}}
	report := stats.NewReport(sampleHistory(t), sessions, model.StatsConfig{CurveWindow: 5})

	var buf bytes.Buffer
	require.NoError(t, renderPlainStats(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "し")
	assert.Contains(t, out, "Response Time Trend")
}
