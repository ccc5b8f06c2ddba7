package model

import (
	"encoding/json"
	"time"
)

type LeaderboardStatus string

const (
	StatusCompleted LeaderboardStatus = "COMPLETED"
	StatusFlagged   LeaderboardStatus = "FLAGGED"
)

const PeriodicCaptureReason = "Periodic Capture"

// IntegrityReport is recomputed from stored logs on every request.
type IntegrityReport struct {
	SubmissionID   string            `json:"submissionId"`
	IntegrityScore float64           `json:"integrityScore"`
	IntegrityFlags []string          `json:"integrityFlags"`
	Status         LeaderboardStatus `json:"status"`
	LogCount       int               `json:"logCount"`
	Snapshots      []Snapshot        `json:"snapshots"`
	Anomalies      []AnomalyMarker   `json:"anomalies"`
	Events         []json.RawMessage `json:"events"`
}

type Snapshot struct {
	ID         string    `json:"id"`
	Image      string    `json:"image"`
	Timestamp  time.Time `json:"timestamp"`
	TimeOffset int64     `json:"timeOffset"`
	Reason     string    `json:"reason"`
}

// AnomalyMarker is an anomaly event without an attached image.
type AnomalyMarker struct {
	ID         string         `json:"id"`
	Type       LogType        `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	TimeOffset int64          `json:"timeOffset"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type LeaderboardEntry struct {
	SubmissionID   string            `json:"submissionId"`
	CandidateID    string            `json:"candidateId"`
	Score          int               `json:"score"`
	IntegrityScore float64           `json:"integrityScore"`
	IntegrityFlags []string          `json:"integrityFlags"`
	Status         LeaderboardStatus `json:"status"`
	SubmittedAt    time.Time         `json:"submittedAt"`
}
