// Package practice implements the adaptive drill scheduler: per-item running
// statistics and the weighted selection of the next item to show.
package practice

import "time"

// Alpha is the decay factor of the exponential moving averages.
const Alpha = 0.2

// Item is a practiceable prompt and the answer it expects.
type Item struct {
	ID     string
	Answer string
}

// Mistake records one failed attempt.
type Mistake struct {
	Input     string    `json:"input"`
	Timestamp time.Time `json:"timestamp"`
}

// Attempt records one answered prompt.
type Attempt struct {
	Input      string    `json:"input"`
	StartTime  time.Time `json:"start_time"`
	DurationMs float64   `json:"duration_ms"`
	Success    bool      `json:"success"`
}

// ItemStats holds the running statistics of a single item.
//
// An item with zero appearances is unseen: its averages are zero and carry no
// meaning until the first attempt seeds them.
type ItemStats struct {
	Appearances     int       `json:"appearances"`
	Successes       int       `json:"successes"`
	Failures        int       `json:"failures"`
	TotalResponseMs float64   `json:"total_response_time"`
	LastAppearance  time.Time `json:"last_appearance"`
	ExpAvgResponse  float64   `json:"exp_avg_response"`
	ExpAvgAccuracy  float64   `json:"exp_avg_accuracy"`
	Mistakes        []Mistake `json:"mistakes"`
	TestHistory     []Attempt `json:"test_history"`
}

// NewItemStats returns zero-state statistics created at now.
func NewItemStats(now time.Time) *ItemStats {
	return &ItemStats{LastAppearance: now}
}

// RecordAttempt applies one answered prompt. responseMs must be a finite,
// non-negative latency; callers validate it before reaching here.
func (s *ItemStats) RecordAttempt(input string, success bool, responseMs float64, now time.Time) {
	s.Appearances++
	if success {
		s.Successes++
	} else {
		s.Failures++
		s.Mistakes = append(s.Mistakes, Mistake{Input: input, Timestamp: now})
	}

	s.TestHistory = append(s.TestHistory, Attempt{
		Input:      input,
		StartTime:  now.Add(-time.Duration(responseMs * float64(time.Millisecond))),
		DurationMs: responseMs,
		Success:    success,
	})

	s.ExpAvgResponse, s.ExpAvgAccuracy = blend(s.Appearances == 1, s.ExpAvgResponse, s.ExpAvgAccuracy, responseMs, success)
	s.TotalResponseMs += responseMs
	s.LastAppearance = now
}

// RecalculateEMA rebuilds both averages from TestHistory alone.
func (s *ItemStats) RecalculateEMA() {
	s.ExpAvgResponse, s.ExpAvgAccuracy = replayEMA(s.TestHistory)
}

// replayEMA runs the seed-then-blend rule over history in order.
func replayEMA(history []Attempt) (response, accuracy float64) {
	for i, entry := range history {
		response, accuracy = blend(i == 0, response, accuracy, entry.DurationMs, entry.Success)
	}
	return response, accuracy
}

// blend seeds the averages with the raw values on the first attempt and
// mixes them in with weight Alpha afterwards.
func blend(first bool, prevResponse, prevAccuracy, responseMs float64, success bool) (float64, float64) {
	hit := 0.0
	if success {
		hit = 1.0
	}
	if first {
		return responseMs, hit
	}
	return Alpha*responseMs + (1-Alpha)*prevResponse, Alpha*hit + (1-Alpha)*prevAccuracy
}

// SuccessRate is the lifetime fraction of successful attempts.
func (s *ItemStats) SuccessRate() float64 {
	if s.Appearances == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Appearances)
}

// AvgResponseTime is the lifetime mean latency in milliseconds.
func (s *ItemStats) AvgResponseTime() float64 {
	if s.Appearances == 0 {
		return 0
	}
	return s.TotalResponseMs / float64(s.Appearances)
}

// RecentSuccessRate is the success fraction over the last n attempts.
func (s *ItemStats) RecentSuccessRate(n int) float64 {
	recent := s.recent(n)
	if len(recent) == 0 {
		return 0
	}
	successes := 0
	for _, entry := range recent {
		if entry.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(recent))
}

// RecentAvgResponseTime is the mean latency over the last n attempts.
func (s *ItemStats) RecentAvgResponseTime(n int) float64 {
	recent := s.recent(n)
	if len(recent) == 0 {
		return 0
	}
	var sum float64
	for _, entry := range recent {
		sum += entry.DurationMs
	}
	return sum / float64(len(recent))
}

func (s *ItemStats) recent(n int) []Attempt {
	if n <= 0 || len(s.TestHistory) == 0 {
		return nil
	}
	if n > len(s.TestHistory) {
		n = len(s.TestHistory)
	}
	return s.TestHistory[len(s.TestHistory)-n:]
}

// LatestMistake returns the most recent failed attempt, if any.
func (s *ItemStats) LatestMistake() (Mistake, bool) {
	if len(s.Mistakes) == 0 {
		return Mistake{}, false
	}
	latest := s.Mistakes[0]
	for _, m := range s.Mistakes[1:] {
		if m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	return latest, true
}

// Clone returns a deep copy.
func (s *ItemStats) Clone() *ItemStats {
	c := *s
	c.Mistakes = append([]Mistake(nil), s.Mistakes...)
	c.TestHistory = append([]Attempt(nil), s.TestHistory...)
	return &c
}
