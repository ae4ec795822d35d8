package practice

import (
	"fmt"
	"math"
	"time"
)

// Selector picks the next item to practice, biased toward items that are
// unseen, error-prone, stale or slow to answer.
type Selector struct {
	sampler  *Sampler
	now      func() time.Time
	observer Observer
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSampler replaces the time-seeded sampler.
func WithSampler(s *Sampler) SelectorOption {
	return func(sel *Selector) { sel.sampler = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SelectorOption {
	return func(sel *Selector) { sel.now = now }
}

// WithObserver receives weight and selection events.
func WithObserver(o Observer) SelectorOption {
	return func(sel *Selector) { sel.observer = o }
}

// NewSelector returns a Selector with the given options applied.
func NewSelector(opts ...SelectorOption) *Selector {
	sel := &Selector{
		sampler:  NewSampler(),
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(sel)
	}
	if sel.observer == nil {
		sel.observer = nopObserver{}
	}
	return sel
}

// Weights returns the raw and normalized weights of catalog at now, in
// catalog order. Items missing from h get zero-state statistics.
func (sel *Selector) Weights(catalog []Item, h *History, now time.Time) (raw, normalized []float64) {
	raw = make([]float64, len(catalog))
	for i, item := range catalog {
		s := h.GetOrInit(item.ID, now)
		raw[i] = s.Weight(now)
		c, seen := s.WeightComponents(now)
		sel.observer.Observe(Event{
			Kind:        EventWeightComputed,
			At:          now,
			ItemID:      item.ID,
			RawWeight:   raw[i],
			Appearances: s.Appearances,
			Components:  c,
			Unseen:      !seen,
		})
	}
	return raw, Normalize(raw)
}

// Select draws the next item from catalog.
func (sel *Selector) Select(catalog []Item, h *History) (Item, error) {
	if len(catalog) == 0 {
		return Item{}, fmt.Errorf("%w: empty catalog", ErrNoItemAvailable)
	}
	now := sel.now()
	raw, weights := sel.Weights(catalog, h, now)
	for i, w := range raw {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return Item{}, fmt.Errorf("%w: %s has raw weight %v", ErrInvalidWeight, catalog[i].ID, w)
		}
	}
	idx, err := sel.sampler.Index(weights)
	if err != nil {
		return Item{}, fmt.Errorf("failed to sample catalog: %w", err)
	}
	chosen := catalog[idx]
	sel.observer.Observe(Event{
		Kind:       EventItemSelected,
		At:         now,
		ItemID:     chosen.ID,
		Normalized: weights[idx],
		Candidates: len(catalog),
	})
	return chosen, nil
}
