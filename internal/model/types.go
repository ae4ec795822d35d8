// Package model defines shared data structures.
package model

import "time"

// Config defines practice settings.
type Config struct {
	Script       string
	Subset       string
	RecentWindow int
	RepairEMA    bool
	Seed         int64
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string
	Path    string
}

// LogConfig defines diagnostic log settings.
type LogConfig struct {
	Level string
	File  string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Script      string
	Since       *time.Time
	Last        int
	CurveWindow int
	Top         int
}

// SessionRecord captures a completed practice session.
type SessionRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Script     string    `json:"script"`
	Subset     string    `json:"subset"`
	Attempts   int       `json:"attempts"`
	Successes  int       `json:"successes"`
	Failures   int       `json:"failures"`
	DurationMs int64     `json:"duration_ms"`
}
