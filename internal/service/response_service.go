package service

import "time"

// LogFilter selects journal entries by time range, type and writer.
type LogFilter struct {
	From   time.Time // inclusive; zero means no lower bound
	To     time.Time // inclusive; zero means no upper bound
	Type   string    // "", "AUTO_WRITE", "MANUAL_WRITE", "WRITE_FAILED", "TOGGLE_REJECTED", "STATUS_CHANGE"
	Writer string    // "", "auto", "manual"
}
