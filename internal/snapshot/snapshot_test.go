package snapshot

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/kanadrill/internal/practice"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestWriteRead(t *testing.T) {
	h := practice.NewHistory(t0)
	require.NoError(t, h.RecordAttempt("つ", "tu", false, 2100, t0))
	require.NoError(t, h.RecordAttempt("つ", "tsu", true, 900, t0.Add(time.Second)))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h, t0.Add(time.Hour)))
	assert.Contains(t, buf.String(), `"version": 1`)
	assert.Contains(t, buf.String(), `"character_stats"`)

	got, drifts, err := Read(&buf, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
	s, ok := got.Get("つ")
	require.True(t, ok)
	assert.Equal(t, 2, s.Appearances)
	assert.InDelta(t, 0.2, s.ExpAvgAccuracy, 1e-12)
	require.Len(t, s.Mistakes, 1)
	assert.Equal(t, "tu", s.Mistakes[0].Input)
}

func TestReadRejectsVersion(t *testing.T) {
	_, _, err := Read(strings.NewReader(`{"version": 7, "history": {}}`), false)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))

	_, _, err = Read(strings.NewReader(`{"version": 1}`), false)
	assert.True(t, errors.Is(err, ErrMissingHistory))

	_, _, err = Read(strings.NewReader(`{"version": 1, "history": {}, "extra": 1}`), false)
	assert.Error(t, err)
}

func TestReadReportsAndRepairsDrift(t *testing.T) {
	doc := `{
  "version": 1,
  "history": {
    "character_stats": {
      "あ": {
        "appearances": 2,
        "successes": 1,
        "failures": 1,
        "total_response_time": 3000,
        "last_appearance": "2025-06-15T10:00:00Z",
        "exp_avg_response": 42,
        "exp_avg_accuracy": 0.8,
        "mistakes": [{"input": "o", "timestamp": "2025-06-15T10:00:00Z"}],
        "test_history": [
          {"input": "a", "start_time": "2025-06-15T09:59:59Z", "duration_ms": 1000, "success": true},
          {"input": "o", "start_time": "2025-06-15T09:59:58Z", "duration_ms": 2000, "success": false}
        ]
      }
    },
    "last_session": "2025-06-15T10:00:00Z",
    "total_practice_time": 3000
  }
}`
	h, drifts, err := Read(strings.NewReader(doc), false)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, 42.0, h.Items["あ"].ExpAvgResponse)

	h, drifts, err = Read(strings.NewReader(doc), true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.InDelta(t, 1200.0, h.Items["あ"].ExpAvgResponse, 1e-9)
	assert.InDelta(t, 0.8, h.Items["あ"].ExpAvgAccuracy, 1e-9)
}

func TestReadRejectsBadLatency(t *testing.T) {
	doc := `{"version": 1, "history": {"character_stats": {"あ": {"test_history": [{"duration_ms": -5}]}}}}`
	_, _, err := Read(strings.NewReader(doc), false)
	assert.True(t, errors.Is(err, practice.ErrInvalidResponseTime))
}

func TestReadLegacyHistory(t *testing.T) {
	doc := `{
  "character_stats": {
    "し": {
      "appearances": 1,
      "successes": 1,
      "failures": 0,
      "total_response_time": 850,
      "last_appearance": "2025-06-15T10:00:00Z",
      "exp_avg_response": 850,
      "exp_avg_accuracy": 1,
      "mistakes": [],
      "test_history": [
        {"input": "shi", "start_time": "2025-06-15T09:59:59Z", "duration_ms": 850, "success": true}
      ]
    }
  },
  "last_session": "2025-06-15T10:00:00Z",
  "total_practice_time": 850
}`
	h, drifts, err := Read(strings.NewReader(doc), false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.Equal(t, 850.0, h.TotalPracticeMs)
	assert.True(t, t0.Equal(h.LastSession))
	s, ok := h.Get("し")
	require.True(t, ok)
	require.Len(t, s.TestHistory, 1)
	assert.Equal(t, "shi", s.TestHistory[0].Input)
}

func TestReadLegacyHistoryRepairsDrift(t *testing.T) {
	doc := `{"character_stats": {"あ": {"appearances": 1, "successes": 1, "exp_avg_response": 10, "exp_avg_accuracy": 1,
  "test_history": [{"input": "a", "start_time": "2025-06-15T10:00:00Z", "duration_ms": 700, "success": true}]}},
  "last_session": "2025-06-15T10:00:00Z", "total_practice_time": 700}`
	h, drifts, err := Read(strings.NewReader(doc), true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "あ", drifts[0].ItemID)
	assert.InDelta(t, 700.0, h.Items["あ"].ExpAvgResponse, 1e-9)
}

func TestReadLegacyWithoutStats(t *testing.T) {
	_, _, err := Read(strings.NewReader(`{"last_session": "2025-06-15T10:00:00Z"}`), false)
	assert.True(t, errors.Is(err, ErrMissingHistory))

	_, _, err = Read(strings.NewReader(`[1, 2]`), false)
	assert.Error(t, err)
}
