package statement

import (
	"slices"
	"time"
)

// EventType identifies an entry in a line's audit log.
type EventType string

const (
	EventAutoReconciled    EventType = "reconciliacao_automatica"
	EventManualReconciled  EventType = "reconciliacao_manual"
	EventManualCategorized EventType = "categorizacao_manual"
	EventUnreconciled      EventType = "desreconciliacao"
)

// Event is an append-only audit entry attached to a statement line.
type Event struct {
	Type    EventType
	Payload map[string]any
	Actor   string
	At      time.Time
}

// AppendEvent returns a copy of the line with e appended to its log. The
// original line and its event slice are left untouched.
func AppendEvent(line Line, e Event) Line {
	line.Events = append(slices.Clip(line.Events), e)
	return line
}

// ReconciledEventType maps a commit method to the audit entry it produces.
func ReconciledEventType(m Method) EventType {
	if m == MethodManual {
		return EventManualReconciled
	}

	return EventAutoReconciled
}
