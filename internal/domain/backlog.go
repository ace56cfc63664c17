package domain

import "time"

type BacklogSample struct {
	At      time.Time `json:"at"`
	Pending int       `json:"pending"`
}

// RecoveryReport describes one drain run of the recovery controller.
type RecoveryReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Iterations int          `json:"iterations"`
	Initial    int          `json:"initial_pending"`
	Remaining  int          `json:"remaining_pending"`
	Drained    bool         `json:"drained"`
	Error      string       `json:"error,omitempty"`
	Summary    BatchSummary `json:"summary"`
}

type BacklogStatus struct {
	Pending      int             `json:"pending"`
	LastSampleAt *time.Time      `json:"last_sample_at,omitempty"`
	History      []BacklogSample `json:"history"`
	Stalled      bool            `json:"stalled"`
	Recovering   bool            `json:"recovering"`
	LastRecovery *RecoveryReport `json:"last_recovery,omitempty"`
}
