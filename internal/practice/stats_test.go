package practice

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestRecordAttemptFirstSuccessSeedsAverages(t *testing.T) {
	s := NewItemStats(t0)
	s.RecordAttempt("shi", true, 850.0, t0.Add(time.Second))

	assert.Equal(t, 1, s.Appearances)
	assert.Equal(t, 1, s.Successes)
	assert.Equal(t, 0, s.Failures)
	assert.Equal(t, 850.0, s.ExpAvgResponse)
	assert.Equal(t, 1.0, s.ExpAvgAccuracy)
	assert.Empty(t, s.Mistakes)
	require.Len(t, s.TestHistory, 1)
	assert.Equal(t, t0.Add(time.Second).Add(-850*time.Millisecond), s.TestHistory[0].StartTime)
	assert.Equal(t, t0.Add(time.Second), s.LastAppearance)
}

func TestRecordAttemptBlendsAfterFirst(t *testing.T) {
	s := NewItemStats(t0)
	s.RecordAttempt("ka", true, 1000, t0)
	s.RecordAttempt("ga", false, 2000, t0.Add(time.Minute))

	assert.InDelta(t, 0.2*2000+0.8*1000, s.ExpAvgResponse, 1e-9)
	assert.InDelta(t, 0.8, s.ExpAvgAccuracy, 1e-9)
	assert.Equal(t, 2, s.Appearances)
	assert.Equal(t, 1, s.Failures)
	require.Len(t, s.Mistakes, 1)
	assert.Equal(t, "ga", s.Mistakes[0].Input)
	assert.Equal(t, t0.Add(time.Minute), s.Mistakes[0].Timestamp)
	assert.Equal(t, 3000.0, s.TotalResponseMs)
	assert.Equal(t, 1500.0, s.AvgResponseTime())
	assert.Equal(t, 0.5, s.SuccessRate())
}

func TestRecordAttemptIsAppendOnly(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	s := NewItemStats(t0)
	failures := 0
	for i := 0; i < 50; i++ {
		ok := rnd.Intn(3) != 0
		if !ok {
			failures++
		}
		before := append([]Attempt(nil), s.TestHistory...)
		s.RecordAttempt("x", ok, rnd.Float64()*3000, t0.Add(time.Duration(i)*time.Second))
		assert.Equal(t, before, s.TestHistory[:len(before)])
	}
	assert.Len(t, s.TestHistory, 50)
	assert.Len(t, s.Mistakes, failures)
	assert.Equal(t, s.Appearances, s.Successes+s.Failures)
}

func TestRecalculateEMAMatchesIncremental(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		s := NewItemStats(t0)
		n := 1 + rnd.Intn(40)
		for i := 0; i < n; i++ {
			s.RecordAttempt("in", rnd.Intn(2) == 0, rnd.Float64()*5000, t0.Add(time.Duration(i)*time.Second))
		}
		wantResp, wantAcc := s.ExpAvgResponse, s.ExpAvgAccuracy

		s.ExpAvgResponse, s.ExpAvgAccuracy = -1, -1
		s.RecalculateEMA()
		assert.Equal(t, wantResp, s.ExpAvgResponse, "trial %d", trial)
		assert.Equal(t, wantAcc, s.ExpAvgAccuracy, "trial %d", trial)
	}
}

func TestRecalculateEMAIsIdempotent(t *testing.T) {
	s := NewItemStats(t0)
	s.RecordAttempt("a", true, 700, t0)
	s.RecordAttempt("o", false, 1900, t0.Add(time.Second))
	s.RecordAttempt("a", true, 650, t0.Add(2*time.Second))

	s.RecalculateEMA()
	resp, acc := s.ExpAvgResponse, s.ExpAvgAccuracy
	s.RecalculateEMA()
	assert.Equal(t, resp, s.ExpAvgResponse)
	assert.Equal(t, acc, s.ExpAvgAccuracy)
}

func TestRecalculateEMAOnEmptyHistory(t *testing.T) {
	s := NewItemStats(t0)
	s.ExpAvgResponse = 123
	s.RecalculateEMA()
	assert.Zero(t, s.ExpAvgResponse)
	assert.Zero(t, s.ExpAvgAccuracy)
}

func TestRecentAccessors(t *testing.T) {
	s := NewItemStats(t0)
	s.RecordAttempt("a", false, 3000, t0)
	s.RecordAttempt("a", true, 1000, t0)
	s.RecordAttempt("a", true, 500, t0)

	assert.InDelta(t, 1.0, s.RecentSuccessRate(2), 1e-9)
	assert.InDelta(t, 750.0, s.RecentAvgResponseTime(2), 1e-9)
	assert.InDelta(t, 2.0/3.0, s.RecentSuccessRate(10), 1e-9)
	assert.Zero(t, s.RecentSuccessRate(0))
	assert.Zero(t, NewItemStats(t0).RecentAvgResponseTime(5))
}

func TestLatestMistake(t *testing.T) {
	s := NewItemStats(t0)
	_, ok := s.LatestMistake()
	assert.False(t, ok)

	s.RecordAttempt("su", false, 900, t0)
	s.RecordAttempt("so", false, 900, t0.Add(time.Hour))
	m, ok := s.LatestMistake()
	require.True(t, ok)
	assert.Equal(t, "so", m.Input)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewItemStats(t0)
	s.RecordAttempt("a", false, 100, t0)
	c := s.Clone()
	c.RecordAttempt("b", false, 100, t0)
	assert.Len(t, s.TestHistory, 1)
	assert.Len(t, s.Mistakes, 1)
	assert.Len(t, c.TestHistory, 2)
}
