package logging

import (
	"context"
	"log/slog"

	"github.com/verte-zerg/kanadrill/internal/practice"
)

// Observer writes scheduler events as debug records.
type Observer struct {
	logger *slog.Logger
}

var _ practice.Observer = (*Observer)(nil)

// NewObserver adapts logger to practice.Observer.
func NewObserver(logger *slog.Logger) *Observer {
	return &Observer{logger: logger}
}

// Observe implements practice.Observer.
func (o *Observer) Observe(e practice.Event) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []slog.Attr{slog.String("item", e.ItemID)}
	switch e.Kind {
	case practice.EventWeightComputed:
		attrs = append(attrs,
			slog.Float64("weight", e.RawWeight),
			slog.Int("appearances", e.Appearances),
		)
		if e.Unseen {
			attrs = append(attrs, slog.Bool("unseen", true))
		} else {
			attrs = append(attrs,
				slog.Float64("error_component", e.Components.Error),
				slog.Float64("recency_component", e.Components.Recency),
				slog.Float64("response_component", e.Components.Response),
				slog.Float64("seconds_since", e.Components.SecondsSince),
			)
		}
	case practice.EventItemSelected:
		attrs = append(attrs,
			slog.Float64("normalized_weight", e.Normalized),
			slog.Int("candidates", e.Candidates),
		)
	case practice.EventAttemptRecorded:
		attrs = append(attrs,
			slog.String("input", e.Input),
			slog.Bool("success", e.Success),
			slog.Float64("response_ms", e.ResponseMs),
			slog.Float64("exp_avg_response", e.ExpAvgResponse),
			slog.Float64("exp_avg_accuracy", e.ExpAvgAccuracy),
		)
	}
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, e.Kind.String(), attrs...)
}
