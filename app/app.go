package app

import (
	"context"

	"tsim7670g-go/boot"
	"tsim7670g-go/bus"
	"tsim7670g-go/console"
	"tsim7670g-go/services/config"
	"tsim7670g-go/services/heartbeat"
)

// Options carries the optional collaborators of Run.
type Options struct {
	// SetupModem is handed to the boot sequencer.
	SetupModem func()
}

// Run owns the console for the life of the program. It takes the board
// profile retained on config/board, boots once, then heartbeats until ctx
// ends (never, on the device). conn is disconnected on return.
func Run(ctx context.Context, con *console.Channel, conn *bus.Connection, opts Options) {
	defer conn.Disconnect()

	board, err := config.Await(ctx, conn)
	if err != nil {
		return
	}

	seq := &boot.Sequencer{
		Console:    con,
		Board:      board,
		SetupModem: opts.SetupModem,
	}
	seq.Run()

	hb := &heartbeat.Service{Console: con, Conn: conn}
	hb.Run(ctx)
}
