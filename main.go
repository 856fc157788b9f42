package main

import (
	"context"

	"tsim7670g-go/app"
	"tsim7670g-go/bus"
	"tsim7670g-go/console"
	"tsim7670g-go/platform"
	"tsim7670g-go/services/config"
)

func main() {
	b := bus.NewBus(4)
	cfgConn := b.NewConnection("config")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, config.DefaultDevice)
	if _, err := config.NewConfigService().Publish(ctx, cfgConn); err != nil {
		cfgConn.Publish(cfgConn.NewMessage(config.TopicBoard, config.Default(), true))
	}

	con := console.New(platform.ConsoleName, platform.Console())

	// Never cancelled: the heartbeat runs until power is removed.
	app.Run(context.Background(), con, b.NewConnection("app"), app.Options{})
}
