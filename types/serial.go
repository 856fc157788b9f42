package types

// ------------------------
// Serial
// ------------------------

// SerialConfig is the line setting applied when a channel is opened.
// Framing is the platform default (8N1).
type SerialConfig struct {
	Baud uint32 `json:"baud"`
}
