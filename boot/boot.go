package boot

import (
	"sync"
	"time"

	"tsim7670g-go/console"
	"tsim7670g-go/services/config"
	"tsim7670g-go/types"
)

// Sequencer is the one-shot power-on phase: open the console, give the
// host terminal time to attach, announce the board.
type Sequencer struct {
	Console *console.Channel
	Board   config.Board

	// Sleep blocks for d. Nil means time.Sleep.
	Sleep func(d time.Duration)

	// SetupModem runs after the status line when set. Nothing ships one;
	// modem bring-up belongs here once it exists.
	SetupModem func()

	once sync.Once
}

// Run executes the sequence. Only the first call has any effect.
// Errors from the console are not surfaced.
func (s *Sequencer) Run() {
	s.once.Do(s.run)
}

func (s *Sequencer) run() {
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	_ = s.Console.Open(types.SerialConfig{Baud: s.Board.Baud})
	sleep(s.Board.AttachDelay)

	_ = s.Console.Println(s.Board.Greeting)
	_ = s.Console.Println(s.Board.Status)

	if s.SetupModem != nil {
		s.SetupModem()
	}
}
