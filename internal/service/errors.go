package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSnapshot marks a sensor payload that carries no usable data.
	// Such payloads are dropped silently.
	ErrInvalidSnapshot = errors.New("invalid sensor snapshot")
	// ErrDeviceOffline rejects relay commands while the device is not online.
	ErrDeviceOffline = errors.New("device is offline")
	// ErrTrackNotMeasured is returned for gestures before the track has a height.
	ErrTrackNotMeasured = errors.New("setpoint track has not been measured")
	// ErrNotDragging is returned for move/end without a preceding start.
	ErrNotDragging = errors.New("no drag in progress")
	// ErrSetpointOutOfRange rejects setpoints outside [MinSetpoint, MaxSetpoint].
	ErrSetpointOutOfRange = errors.New("setpoint out of range")
)

// SubscriptionError reports a store listener failure. The core logs it and
// leaves reconnection to the store.
type SubscriptionError struct {
	Path string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription to %q failed: %v", e.Path, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// WriteError reports a rejected relay write. It is never retried immediately.
type WriteError struct {
	Path  string
	Value bool
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %v to %q failed: %v", e.Value, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
