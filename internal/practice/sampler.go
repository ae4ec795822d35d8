package practice

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Sampler draws indices proportionally to their weights.
type Sampler struct {
	rnd *rand.Rand
}

// NewSampler returns a Sampler seeded with the current time.
func NewSampler() *Sampler {
	return NewSeededSampler(time.Now().UnixNano())
}

// NewSeededSampler returns a deterministic Sampler.
func NewSeededSampler(seed int64) *Sampler {
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// Index picks one position of weights. Every weight must be finite and
// strictly positive.
func (s *Sampler) Index(weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, fmt.Errorf("%w: no weights", ErrNoItemAvailable)
	}
	cumulative := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return 0, fmt.Errorf("%w: weights[%d] = %v", ErrInvalidWeight, i, w)
		}
		total += w
		cumulative[i] = total
	}

	r := s.rnd.Float64() * total
	idx := sort.Search(len(cumulative), func(i int) bool { return r < cumulative[i] })
	if idx >= len(cumulative) {
		idx = len(cumulative) - 1
	}
	return idx, nil
}
