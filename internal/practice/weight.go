package practice

import (
	"math"
	"time"
)

const (
	// NewItemWeight is the raw weight of an item that was never attempted.
	// It is above every weight a seen item can reach.
	NewItemWeight = 3.0

	recencyMidpointSec  = 1800.0
	recencySteepness    = 0.002
	responseMidpointMs  = 1200.0
	responseSteepness   = 0.005
	normalizedMinWeight = 1.0
	normalizedMaxWeight = 10.0
)

// Components are the three practice-need signals of a seen item, each in [0,1].
type Components struct {
	Error    float64
	Recency  float64
	Response float64
	// SecondsSince is the whole-second gap since the last appearance.
	SecondsSince float64
}

// WeightComponents computes the signals behind Weight. ok is false for
// unseen items, which have no components.
func (s *ItemStats) WeightComponents(now time.Time) (c Components, ok bool) {
	if s.Appearances == 0 {
		return Components{}, false
	}
	secondsSince := float64(now.Sub(s.LastAppearance) / time.Second)
	return Components{
		Error:        1 - s.ExpAvgAccuracy,
		Recency:      sigmoid(recencySteepness * (secondsSince - recencyMidpointSec)),
		Response:     sigmoid(responseSteepness * (s.ExpAvgResponse - responseMidpointMs)),
		SecondsSince: secondsSince,
	}, true
}

// Weight returns the raw selection priority of the item at now.
func (s *ItemStats) Weight(now time.Time) float64 {
	c, ok := s.WeightComponents(now)
	if !ok {
		return NewItemWeight
	}
	return 1 + (c.Error+c.Recency+c.Response)/3
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Normalize rescales raw weights linearly onto [1,10]. When every weight is
// equal the result is all ones. The input is not modified.
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	minW, maxW := raw[0], raw[0]
	for _, w := range raw[1:] {
		minW = math.Min(minW, w)
		maxW = math.Max(maxW, w)
	}
	if !(maxW > minW) {
		for i := range out {
			out[i] = normalizedMinWeight
		}
		return out
	}
	span := normalizedMaxWeight - normalizedMinWeight
	for i, w := range raw {
		out[i] = normalizedMinWeight + span*(w-minW)/(maxW-minW)
	}
	return out
}
