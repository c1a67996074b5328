package models

import "time"

// Journal event types.
const (
	EventAutoWrite      = "AUTO_WRITE"
	EventManualWrite    = "MANUAL_WRITE"
	EventWriteFailed    = "WRITE_FAILED"
	EventToggleRejected = "TOGGLE_REJECTED"
	EventStatusChange   = "STATUS_CHANGE"
)

// RelayEvent is a single journal entry.
type RelayEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`             // AUTO_WRITE | MANUAL_WRITE | WRITE_FAILED | TOGGLE_REJECTED | STATUS_CHANGE
	Writer      Writer    `json:"writer,omitempty"` // empty for STATUS_CHANGE
	Value       *bool     `json:"value,omitempty"`  // relay value written or attempted
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
