package config

import "tsim7670g-go/x/timex"

// -----------------------------------------------------------------------------
// Embedded board profiles
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// -----------------------------------------------------------------------------

// DefaultDevice is the profile the firmware boots with.
const DefaultDevice = "tsim7670g"

var boardTSIM7670G = Board{
	Name:              "T-SIM7670G S3",
	Baud:              115200,
	AttachDelay:       timex.Ms(1000),
	Greeting:          "Hello from the T-SIM7670G S3!",
	Status:            "Board setup complete. Waiting to initialize modem...",
	HeartbeatInterval: timex.Ms(5000),
	HeartbeatMark:     '.',
}

var embeddedBoards = map[string]Board{
	DefaultDevice: boardTSIM7670G,
}
