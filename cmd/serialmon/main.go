// cmd/serialmon watches a board's console from the host and checks the
// boot lines and heartbeat cadence against the board profile.
//
//	serialmon -port /dev/ttyACM0 -duration 30s
//
// Without -reset-now the board may already be running: output is skipped
// up to the greeting or the first heartbeat, and PASS needs at least one
// of them. Reset the board right after starting with -reset-now to require
// the boot lines and check the attach delay.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tsim7670g-go/errcode"
	"tsim7670g-go/monitor"
	"tsim7670g-go/services/config"
)

func main() {
	var (
		port      = flag.String("port", "/dev/ttyACM0", "serial device")
		baud      = flag.Int("baud", 0, "baud rate (0 = board profile)")
		device    = flag.String("device", config.DefaultDevice, "board profile")
		duration  = flag.Duration("duration", 30*time.Second, "how long to watch (0 = until interrupted)")
		tolerance = flag.Duration("tolerance", 20*time.Millisecond, "allowed early arrival of a heartbeat")
		resetNow  = flag.Bool("reset-now", false, "treat start-up as the board reset instant")
		verbose   = flag.Bool("v", false, "log every heartbeat")
	)
	flag.Parse()

	log := newLogger(*verbose)
	defer func() { _ = log.Sync() }()

	board, err := config.Lookup(*device)
	if err != nil {
		log.Fatal("unknown board", zap.String("device", *device), zap.Error(err))
	}
	if *baud == 0 {
		*baud = int(board.Baud)
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        *port,
		Baud:        *baud,
		ReadTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		log.Fatal("open serial port", zap.Error(errcode.Wrap(errcode.PortOpen, *port, err)))
	}
	defer p.Close()
	log.Info("watching", zap.String("port", *port), zap.Int("baud", *baud), zap.String("board", board.Name))

	var start time.Time
	if *resetNow {
		start = time.Now()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	chk := monitor.NewChecker(monitor.ExpectFor(board, *tolerance), start)
	w := &monitor.Watcher{Checker: chk, Log: log, IdleOnEOF: true}
	watchErr := w.Watch(ctx, p)

	log.Info("summary",
		zap.Bool("booted", chk.Booted()),
		zap.Bool("joined", chk.Joined()),
		zap.Int("heartbeats", chk.Marks()),
		zap.Time("last_heartbeat", chk.LastMark()),
		zap.Int("skipped", chk.Skipped()),
		zap.Int("bytes", chk.BytesSeen()))
	err = chk.Verdict()
	if err == nil {
		err = watchErr // read failure
	}
	if err != nil {
		log.Error("FAIL", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("PASS")
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
