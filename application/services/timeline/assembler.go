package timeline

import (
	"encoding/json"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/infrastructure/logger"
	"go.uber.org/zap"
)

// Timeline is the gallery, anomaly and replay view of one submission's logs.
type Timeline struct {
	Snapshots []model.Snapshot
	Anomalies []model.AnomalyMarker
	Events    []json.RawMessage
}

type Assembler interface {
	// Assemble expects logs in store order.
	Assemble(submissionID string, logs []*model.ProctorLog) Timeline
}

type assembler struct {
	logger *logger.Logger
}

func NewAssembler(logger *logger.Logger) Assembler {
	return &assembler{logger: logger}
}

func (a *assembler) Assemble(submissionID string, logs []*model.ProctorLog) Timeline {
	tl := Timeline{
		Snapshots: make([]model.Snapshot, 0),
		Anomalies: make([]model.AnomalyMarker, 0),
		Events:    make([]json.RawMessage, 0),
	}
	if len(logs) == 0 {
		return tl
	}

	t0 := logs[0].Timestamp

	for _, entry := range logs {
		offset := timeOffset(t0, entry.Timestamp)

		payload, err := model.DecodePayload(entry.LogType, entry.Payload)
		if err != nil {
			a.logger.Warn("Skipping unreadable proctor payload",
				zap.String("submissionID", submissionID),
				zap.String("logID", entry.ID),
				zap.String("logType", string(entry.LogType)),
				zap.Error(err),
			)
		}

		switch p := payload.(type) {
		case model.SnapshotPayload:
			tl.Snapshots = append(tl.Snapshots, model.Snapshot{
				ID:         entry.ID,
				Image:      NormalizeImage(p.Image),
				Timestamp:  entry.Timestamp,
				TimeOffset: offset,
				Reason:     model.PeriodicCaptureReason,
			})

		case model.ActivityPayload:
			if p.HasImage() {
				tl.Snapshots = append(tl.Snapshots, model.Snapshot{
					ID:         entry.ID,
					Image:      NormalizeImage(p.Image),
					Timestamp:  entry.Timestamp,
					TimeOffset: offset,
					Reason:     "Suspect: " + string(entry.LogType),
				})
				continue
			}
			tl.Anomalies = append(tl.Anomalies, model.AnomalyMarker{
				ID:         entry.ID,
				Type:       entry.LogType,
				Timestamp:  entry.Timestamp,
				TimeOffset: offset,
				Metadata:   p.Metadata,
			})

		case model.ReplayPayload:
			tl.Events = append(tl.Events, p.Events...)
		}
	}

	return tl
}

// timeOffset is whole seconds since t0, never negative.
func timeOffset(t0, ts time.Time) int64 {
	d := ts.Sub(t0)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
