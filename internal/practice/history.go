package practice

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// driftTolerance absorbs float formatting round trips through storage.
const driftTolerance = 1e-9

// History is the learner's persisted state: statistics keyed by item id
// plus session metadata. It is owned by the caller and borrowed by Selector.
type History struct {
	Items           map[string]*ItemStats `json:"character_stats"`
	LastSession     time.Time             `json:"last_session"`
	TotalPracticeMs float64               `json:"total_practice_time"`

	observer Observer
}

// NewHistory returns an empty history.
func NewHistory(now time.Time) *History {
	return &History{
		Items:       map[string]*ItemStats{},
		LastSession: now,
	}
}

// SetObserver installs o for attempt events. A nil o disables events.
func (h *History) SetObserver(o Observer) {
	h.observer = o
}

func (h *History) emit(e Event) {
	if h.observer != nil {
		h.observer.Observe(e)
	}
}

// GetOrInit returns the statistics for id, inserting zero-state statistics
// created at now when id has none. Existing entries are untouched.
func (h *History) GetOrInit(id string, now time.Time) *ItemStats {
	if h.Items == nil {
		h.Items = map[string]*ItemStats{}
	}
	s, ok := h.Items[id]
	if !ok {
		s = NewItemStats(now)
		h.Items[id] = s
	}
	return s
}

// Get returns the statistics for id without creating them.
func (h *History) Get(id string) (*ItemStats, bool) {
	s, ok := h.Items[id]
	return s, ok
}

// IDs returns the item ids in sorted order.
func (h *History) IDs() []string {
	ids := make([]string, 0, len(h.Items))
	for id := range h.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateResponseTime rejects latencies the statistics cannot absorb.
func ValidateResponseTime(responseMs float64) error {
	if math.IsNaN(responseMs) || math.IsInf(responseMs, 0) || responseMs < 0 {
		return fmt.Errorf("%w: %v ms", ErrInvalidResponseTime, responseMs)
	}
	return nil
}

// RecordAttempt validates the latency and records the attempt on id's
// statistics. It also adds the latency to the total practice time.
func (h *History) RecordAttempt(id, input string, success bool, responseMs float64, now time.Time) error {
	if err := ValidateResponseTime(responseMs); err != nil {
		return err
	}
	s := h.GetOrInit(id, now)
	s.RecordAttempt(input, success, responseMs, now)
	h.TotalPracticeMs += responseMs
	h.emit(Event{
		Kind:           EventAttemptRecorded,
		At:             now,
		ItemID:         id,
		Input:          input,
		Success:        success,
		ResponseMs:     responseMs,
		Appearances:    s.Appearances,
		ExpAvgResponse: s.ExpAvgResponse,
		ExpAvgAccuracy: s.ExpAvgAccuracy,
	})
	return nil
}

// Drift reports stored averages that disagree with a replay of the history.
type Drift struct {
	ItemID             string
	StoredResponse     float64
	RecomputedResponse float64
	StoredAccuracy     float64
	RecomputedAccuracy float64
}

func (d Drift) String() string {
	return fmt.Sprintf("%s: response %.3f != %.3f, accuracy %.4f != %.4f",
		d.ItemID, d.StoredResponse, d.RecomputedResponse, d.StoredAccuracy, d.RecomputedAccuracy)
}

// Verify compares the stored averages with a replay of the history.
func (s *ItemStats) Verify() (response, accuracy float64, consistent bool) {
	response, accuracy = replayEMA(s.TestHistory)
	consistent = math.Abs(response-s.ExpAvgResponse) <= driftTolerance &&
		math.Abs(accuracy-s.ExpAvgAccuracy) <= driftTolerance
	return response, accuracy, consistent
}

// Validate replays every item's history and reports the items whose stored
// averages drifted, in id order. Stored values are only replaced when repair
// is set.
func (h *History) Validate(repair bool) []Drift {
	var drifts []Drift
	for _, id := range h.IDs() {
		s := h.Items[id]
		response, accuracy, ok := s.Verify()
		if ok {
			continue
		}
		drifts = append(drifts, Drift{
			ItemID:             id,
			StoredResponse:     s.ExpAvgResponse,
			RecomputedResponse: response,
			StoredAccuracy:     s.ExpAvgAccuracy,
			RecomputedAccuracy: accuracy,
		})
		if repair {
			s.ExpAvgResponse = response
			s.ExpAvgAccuracy = accuracy
		}
	}
	return drifts
}

// Clone returns a deep copy without the observer.
func (h *History) Clone() *History {
	c := &History{
		Items:           make(map[string]*ItemStats, len(h.Items)),
		LastSession:     h.LastSession,
		TotalPracticeMs: h.TotalPracticeMs,
	}
	for id, s := range h.Items {
		c.Items[id] = s.Clone()
	}
	return c
}

// Totals sums attempts across all items.
func (h *History) Totals() (appearances, successes, failures int) {
	for _, s := range h.Items {
		appearances += s.Appearances
		successes += s.Successes
		failures += s.Failures
	}
	return appearances, successes, failures
}
