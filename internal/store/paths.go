package store

import "fmt"

const (
	readingsRoot    = "sensores/lecturas"
	readingsInitial = readingsRoot + "/inicial"
)

// Paths lists the store locations used for one device.
type Paths struct {
	Readings     string // single snapshot object
	ReadingsList string // ordered children, the last one is the latest snapshot
	Status       string // "online" | "offline"
	LastSeen     string // heartbeat marker, value unused
	Relay        string // bool relay command
}

// NewPaths returns the paths for the given device id (e.g. "esp32_1").
func NewPaths(deviceID string) Paths {
	base := fmt.Sprintf("dispositivos/%s", deviceID)
	return Paths{
		Readings:     readingsInitial,
		ReadingsList: readingsRoot,
		Status:       base + "/estado",
		LastSeen:     base + "/ultima_conexion",
		Relay:        base + "/rele",
	}
}
