package models

import "time"

// Connectivity is the device status as published on the status path.
type Connectivity string

const (
	Online  Connectivity = "online"
	Offline Connectivity = "offline"
	// Unknown means no status notification has arrived yet.
	Unknown Connectivity = ""
)

// DeviceStatus is the liveness snapshot of the supervised device.
type DeviceStatus struct {
	State    Connectivity `json:"state"`
	LastSeen *time.Time   `json:"last_seen,omitempty"` // local clock at the last heartbeat
}

// IsOnline reports whether relay commands may be sent to the device.
func (s DeviceStatus) IsOnline() bool {
	return s.State == Online
}
