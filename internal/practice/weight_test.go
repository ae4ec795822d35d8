package practice

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeightUnseenIsConstant(t *testing.T) {
	s := NewItemStats(t0)
	for _, now := range []time.Time{t0, t0.Add(-time.Hour), t0.Add(30 * 24 * time.Hour), {}} {
		assert.Equal(t, NewItemWeight, s.Weight(now))
	}
	_, ok := s.WeightComponents(t0)
	assert.False(t, ok)
}

func TestWeightSeenIsBetweenOneAndTwo(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		s := &ItemStats{
			Appearances:    1 + rnd.Intn(100),
			ExpAvgAccuracy: rnd.Float64(),
			ExpAvgResponse: rnd.Float64() * 5000,
			LastAppearance: t0,
		}
		now := t0.Add(time.Duration(rnd.Int63n(int64(2 * time.Hour))))
		w := s.Weight(now)
		assert.Greater(t, w, 1.0)
		assert.Less(t, w, 2.0)
	}
}

func TestWeightComponents(t *testing.T) {
	s := &ItemStats{
		Appearances:    10,
		Successes:      5,
		Failures:       5,
		ExpAvgAccuracy: 0.5,
		ExpAvgResponse: 1200,
		LastAppearance: t0,
	}
	c, ok := s.WeightComponents(t0.Add(1800 * time.Second))
	assert.True(t, ok)
	assert.InDelta(t, 0.5, c.Error, 1e-12)
	assert.InDelta(t, 0.5, c.Recency, 1e-12)
	assert.InDelta(t, 0.5, c.Response, 1e-12)
	assert.Equal(t, 1800.0, c.SecondsSince)
	assert.InDelta(t, 1.5, s.Weight(t0.Add(1800*time.Second)), 1e-12)
}

func TestWeightRecencyUsesWholeSeconds(t *testing.T) {
	s := &ItemStats{Appearances: 1, ExpAvgAccuracy: 1, ExpAvgResponse: 1200, LastAppearance: t0}
	a := s.Weight(t0.Add(10 * time.Second))
	b := s.Weight(t0.Add(10*time.Second + 900*time.Millisecond))
	assert.Equal(t, a, b)
}

func TestWeightGrowsWithStaleness(t *testing.T) {
	s := &ItemStats{Appearances: 3, ExpAvgAccuracy: 1, ExpAvgResponse: 800, LastAppearance: t0}
	assert.Less(t, s.Weight(t0.Add(time.Minute)), s.Weight(t0.Add(2*time.Hour)))
}

func TestNormalizeSpansOneToTen(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rnd.Intn(30)
		raw := make([]float64, n)
		for i := range raw {
			raw[i] = 1 + rnd.Float64()*2
		}
		raw[0], raw[1] = 1.25, 3.0

		out := Normalize(raw)
		minW, maxW := out[0], out[0]
		for _, w := range out {
			if w < minW {
				minW = w
			}
			if w > maxW {
				maxW = w
			}
			assert.GreaterOrEqual(t, w, 1.0)
			assert.LessOrEqual(t, w, 10.0)
		}
		assert.Equal(t, 1.0, minW)
		assert.Equal(t, 10.0, maxW)
	}
}

func TestNormalizeAllEqual(t *testing.T) {
	assert.Equal(t, []float64{1, 1, 1}, Normalize([]float64{3, 3, 3}))
	assert.Equal(t, []float64{1}, Normalize([]float64{1.7}))
	assert.Empty(t, Normalize(nil))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	raw := []float64{1.5, 3}
	_ = Normalize(raw)
	assert.Equal(t, []float64{1.5, 3}, raw)
}
