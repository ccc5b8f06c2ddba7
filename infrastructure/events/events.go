package events

import "time"

// EventType defines the type of event
type EventType string

const (
	EventSubmissionFinalized EventType = "submission.finalized"
)

// Event is an application event routed through the in-process bus.
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	SubmissionID string         `json:"submission_id,omitempty"`
	AssessmentID string         `json:"assessment_id,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// PartitionKey keeps every event of one assessment on the same worker.
func (e *Event) PartitionKey() string {
	if e.AssessmentID != "" {
		return e.AssessmentID
	}
	return e.SubmissionID
}
