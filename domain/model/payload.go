package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Payload is the decoded form of a log entry's data. The concrete type is
// determined by the entry's LogType.
type Payload interface {
	Type() LogType
}

type SnapshotPayload struct {
	Image string
}

func (SnapshotPayload) Type() LogType { return LogTypeSnapshot }

type ActivityPayload struct {
	Kind     LogType
	Metadata map[string]any
	Image    string
}

func (p ActivityPayload) Type() LogType { return p.Kind }

func (p ActivityPayload) HasImage() bool { return p.Image != "" }

// ReplayPayload holds opaque interaction records in recorder order.
type ReplayPayload struct {
	Events []json.RawMessage
}

func (ReplayPayload) Type() LogType { return LogTypeReplay }

var ErrEmptyPayload = errors.New("payload is empty")

type PayloadError struct {
	LogType LogType
	Err     error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("decode %s payload: %v", e.LogType, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// image keys a recorder may use to attach a capture to an anomaly event
var activityImageKeys = []string{"image", "snapshot", "screenshot"}

// DecodePayload parses raw entry data into its typed variant. For anomaly
// types a malformed payload still yields a usable ActivityPayload alongside
// the error so the event itself is not lost.
func DecodePayload(t LogType, raw string) (Payload, error) {
	switch t {
	case LogTypeSnapshot:
		if strings.TrimSpace(raw) == "" {
			return nil, &PayloadError{LogType: t, Err: ErrEmptyPayload}
		}
		return SnapshotPayload{Image: raw}, nil

	case LogTypeActivityDump, LogTypeTabSwitch, LogTypeFullScreenExit:
		return decodeActivity(t, raw)

	case LogTypeReplay:
		return decodeReplay(raw)
	}

	return nil, &PayloadError{LogType: t, Err: fmt.Errorf("unknown log type")}
}

func decodeActivity(t LogType, raw string) (Payload, error) {
	p := ActivityPayload{Kind: t}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return p, nil
	}
	if strings.HasPrefix(trimmed, "data:image/") {
		p.Image = trimmed
		return p, nil
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(trimmed), &metadata); err != nil {
		return p, &PayloadError{LogType: t, Err: err}
	}
	p.Metadata = metadata

	for _, key := range activityImageKeys {
		if img, ok := metadata[key].(string); ok && img != "" {
			p.Image = img
			delete(p.Metadata, key)
			break
		}
	}

	return p, nil
}

func decodeReplay(raw string) (Payload, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, &PayloadError{LogType: LogTypeReplay, Err: ErrEmptyPayload}
	}

	var events []json.RawMessage
	if err := json.Unmarshal(data, &events); err == nil {
		return ReplayPayload{Events: events}, nil
	}

	if data[0] == '{' && json.Valid(data) {
		return ReplayPayload{Events: []json.RawMessage{json.RawMessage(data)}}, nil
	}

	return nil, &PayloadError{LogType: LogTypeReplay, Err: errors.New("not a JSON array or object")}
}
