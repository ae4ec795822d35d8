package practice

import "errors"

// Sentinel errors for the practice package.
// Use errors.Is to check: errors.Is(err, practice.ErrNoItemAvailable)
var (
	ErrNoItemAvailable     = errors.New("practice: no item available")
	ErrInvalidWeight       = errors.New("practice: invalid sampling weight")
	ErrInvalidResponseTime = errors.New("practice: invalid response time")
)
