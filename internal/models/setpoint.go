package models

// Setpoint bounds in °C, inclusive.
const (
	MinSetpoint     = 15
	MaxSetpoint     = 35
	DefaultSetpoint = 25
)
