package models

import "time"

// SensorReading is one accepted snapshot from the device, at full precision.
type SensorReading struct {
	LM35TempC  float64   `json:"lm35_temp_c"`  // °C
	DHT11TempC float64   `json:"dht11_temp_c"` // °C, drives the threshold controller
	Humidity   float64   `json:"humidity"`     // %RH
	ObservedAt time.Time `json:"observed_at"`
}

// DisplayReadings is the display-ready form of the latest reading.
// Fields hold "--" when no valid reading is available.
type DisplayReadings struct {
	LM35TempC  string     `json:"lm35_temp_c"`
	DHT11TempC string     `json:"dht11_temp_c"`
	Humidity   string     `json:"humidity"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}
