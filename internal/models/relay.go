package models

import "time"

// Writer identifies which authority issued a relay command.
type Writer string

const (
	WriterAuto   Writer = "auto"   // threshold controller
	WriterManual Writer = "manual" // operator toggle
)

// RelayView is the read-side aggregate of relay field, status and heartbeat.
type RelayView struct {
	IsOn        bool       `json:"is_on"`
	Known       bool       `json:"known"`        // false until the relay field has been observed
	StatusLabel string     `json:"status_label"` // "online" | "offline" | "unknown"
	LastUpdate  *time.Time `json:"last_update,omitempty"`
	CanAct      bool       `json:"can_act"` // manual control is only allowed while online
}

// LastWrite records the most recent relay write confirmed by either writer.
type LastWrite struct {
	Writer Writer    `json:"writer"`
	Value  bool      `json:"value"`
	At     time.Time `json:"at"`
}

// SupervisorState is the full snapshot served over HTTP and the websocket.
type SupervisorState struct {
	Readings        DisplayReadings `json:"readings"`
	Relay           RelayView       `json:"relay"`
	Setpoint        int             `json:"setpoint"`
	SetpointLabel   string          `json:"setpoint_label"` // e.g. "25°C"
	ControllerPhase string          `json:"controller_phase"`
	LastWrite       *LastWrite      `json:"last_write,omitempty"`
}
