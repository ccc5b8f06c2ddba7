package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type LogType string

const (
	LogTypeSnapshot       LogType = "SNAPSHOT"
	LogTypeActivityDump   LogType = "ACTIVITY_DUMP"
	LogTypeTabSwitch      LogType = "TAB_SWITCH"
	LogTypeFullScreenExit LogType = "FULL_SCREEN_EXIT"
	LogTypeReplay         LogType = "REPLAY"
)

var validLogTypes = map[LogType]bool{
	LogTypeSnapshot:       true,
	LogTypeActivityDump:   true,
	LogTypeTabSwitch:      true,
	LogTypeFullScreenExit: true,
	LogTypeReplay:         true,
}

func ParseLogType(s string) (LogType, error) {
	t := LogType(strings.ToUpper(strings.TrimSpace(s)))
	if !validLogTypes[t] {
		return "", fmt.Errorf("unknown log type %q", s)
	}
	return t, nil
}

func (t LogType) IsValid() bool {
	return validLogTypes[t]
}

// IsAnomaly reports whether the type is a discrete suspicious-behavior event.
func (t LogType) IsAnomaly() bool {
	return t == LogTypeActivityDump || t == LogTypeTabSwitch || t == LogTypeFullScreenExit
}

// ProctorLog is one unit of telemetry for a submission. Entries are never
// mutated once stored.
type ProctorLog struct {
	ID             string      `gorm:"type:VARCHAR(36);primaryKey" json:"id"`
	SubmissionID   string      `gorm:"type:VARCHAR(36);not null;index:idx_proctor_logs_order,priority:1" json:"submissionId"`
	Timestamp      time.Time   `gorm:"not null;index:idx_proctor_logs_order,priority:2" json:"timestamp"`
	SequenceNumber *int64      `gorm:"index:idx_proctor_logs_order,priority:3" json:"sequenceNumber,omitempty"`
	LogType        LogType     `gorm:"type:VARCHAR(32);not null" json:"logType"`
	Payload        string      `gorm:"type:TEXT" json:"payload"`
	CreatedAt      time.Time   `gorm:"not null" json:"createdAt"`
	Submission     *Submission `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ProctorLog) TableName() string {
	return "proctor_logs"
}

func (l *ProctorLog) sequence() int64 {
	if l.SequenceNumber == nil {
		return 0
	}
	return *l.SequenceNumber
}

// Before is the retrieval order of a submission's logs: timestamp, then the
// client sequence number, then the time-ordered id.
func (l *ProctorLog) Before(other *ProctorLog) bool {
	if !l.Timestamp.Equal(other.Timestamp) {
		return l.Timestamp.Before(other.Timestamp)
	}
	if a, b := l.sequence(), other.sequence(); a != b {
		return a < b
	}
	return l.ID < other.ID
}

func SortProctorLogs(logs []*ProctorLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Before(logs[j])
	})
}
