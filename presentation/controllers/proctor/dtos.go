package proctor

import (
	"encoding/json"
	"time"
)

// LogRequest is one recorder entry. Data may be a JSON string (base64 image,
// serialized activity) or an inline JSON value, which is stored as text.
type LogRequest struct {
	SubmissionID   string          `json:"submissionId" binding:"required"`
	LogType        string          `json:"logType" binding:"required,logtype"`
	Data           json.RawMessage `json:"data"`
	SequenceNumber *int64          `json:"sequenceNumber"`
	Timestamp      *time.Time      `json:"timestamp"`
}

type LogResponse struct {
	Message string `json:"message"`
}

type BatchResponse struct {
	Message  string `json:"message"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
