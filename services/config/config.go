package config

import (
	"context"
	"time"

	"tsim7670g-go/bus"
	"tsim7670g-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// Board holds the fixed operating parameters of one board.
type Board struct {
	Name              string        `json:"name"`
	Baud              uint32        `json:"baud"`
	AttachDelay       time.Duration `json:"attach_delay"`
	Greeting          string        `json:"greeting"`
	Status            string        `json:"status"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	HeartbeatMark     byte          `json:"heartbeat_mark"`
}

// Validate rejects profiles the boot and heartbeat phases cannot run.
func (b Board) Validate() error {
	switch {
	case b.Baud == 0:
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "baud must be > 0"}
	case b.AttachDelay < 0:
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "attach delay must be >= 0"}
	case b.HeartbeatInterval <= 0:
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "heartbeat interval must be > 0"}
	case b.HeartbeatMark == 0 || b.HeartbeatMark == '\n' || b.HeartbeatMark == '\r':
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "heartbeat mark must be a printable byte"}
	}
	return nil
}

// EmbeddedConfigLookup allows overriding how profiles are resolved.
var EmbeddedConfigLookup = func(device string) (Board, bool) {
	b, ok := embeddedBoards[device]
	return b, ok
}

// Lookup resolves and validates the profile for device.
func Lookup(device string) (Board, error) {
	b, ok := EmbeddedConfigLookup(device)
	if !ok {
		return Board{}, &errcode.E{C: errcode.UnknownDevice, Op: "config.lookup", Msg: device}
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Default returns the profile of DefaultDevice.
func Default() Board {
	b, err := Lookup(DefaultDevice)
	if err != nil {
		return boardTSIM7670G
	}
	return b
}

// TopicBoard is where the active profile is retained.
var TopicBoard = bus.T(configPrefix, "board")

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Await blocks until a Board is retained on TopicBoard or ctx ends.
func Await(ctx context.Context, conn *bus.Connection) (Board, error) {
	sub := conn.Subscribe(TopicBoard)
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return Board{}, ctx.Err()
		case m := <-sub.Channel():
			if b, ok := m.Payload.(Board); ok {
				return b, nil
			}
		}
	}
}

// Publish resolves the device named in ctx and retains its profile on the bus.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) (Board, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return Board{}, &errcode.E{C: errcode.InvalidParams, Op: "config.publish", Msg: "missing device ID in context"}
	}
	b, err := Lookup(device)
	if err != nil {
		return Board{}, err
	}
	conn.Publish(conn.NewMessage(TopicBoard, b, true))
	return b, nil
}
