package model

import "time"

// SkipRecord explains why a symbol was left out of a ranking
type SkipRecord struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// RankedScore is a composite score with its 1-based position
type RankedScore struct {
	Rank int `json:"rank"`
	CompositeScoreResult
}

// RankedSignal is a signal summary with its 1-based position
type RankedSignal struct {
	Rank int `json:"rank"`
	SignalSummary
}

// ScoreRanking is the output of a composite-score screening run
type ScoreRanking struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	TotalScanned int           `json:"total_scanned"`
	Ranked       []RankedScore `json:"ranked"`
	Skipped      []SkipRecord  `json:"skipped"`
	ScanTime     time.Duration `json:"scan_time"`
}

// SignalRanking is the output of a signal screening run
type SignalRanking struct {
	RunID        string         `json:"run_id"`
	StartedAt    time.Time      `json:"started_at"`
	TotalScanned int            `json:"total_scanned"`
	Ranked       []RankedSignal `json:"ranked"`
	Skipped      []SkipRecord   `json:"skipped"`
	ScanTime     time.Duration  `json:"scan_time"`
}
