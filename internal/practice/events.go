package practice

import "time"

// EventKind names a scheduler decision point.
type EventKind int

const (
	EventWeightComputed EventKind = iota + 1
	EventItemSelected
	EventAttemptRecorded
)

func (k EventKind) String() string {
	switch k {
	case EventWeightComputed:
		return "weight_computed"
	case EventItemSelected:
		return "item_selected"
	case EventAttemptRecorded:
		return "attempt_recorded"
	default:
		return "unknown"
	}
}

// Event describes one scheduler decision. Fields that do not apply to the
// kind are left zero.
type Event struct {
	Kind   EventKind
	At     time.Time
	ItemID string

	// EventWeightComputed
	RawWeight   float64
	Appearances int
	Components  Components
	Unseen      bool

	// EventItemSelected
	Normalized float64
	Candidates int

	// EventAttemptRecorded
	Input          string
	Success        bool
	ResponseMs     float64
	ExpAvgResponse float64
	ExpAvgAccuracy float64
}

// Observer receives scheduler events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
