package heartbeat

import (
	"context"
	"time"

	"tsim7670g-go/bus"
	"tsim7670g-go/console"
	"tsim7670g-go/services/config"
)

// Service writes one mark to the console, waits the board's heartbeat
// interval, and repeats. Interval and mark come from the profile retained
// on config/board; the first mark goes out as soon as one is known.
type Service struct {
	Console *console.Channel
	Conn    *bus.Connection

	interval time.Duration
	mark     byte
}

// apply takes interval and mark from a board profile. A profile that
// fails validation is ignored.
func (s *Service) apply(payload any) {
	b, ok := payload.(config.Board)
	if !ok || b.Validate() != nil {
		return
	}
	s.interval = b.HeartbeatInterval
	s.mark = b.HeartbeatMark
}

// Run loops until ctx is cancelled. On the device ctx is never cancelled.
// A profile update changes the wait after the current one.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.Conn.Subscribe(config.TopicBoard)
	defer s.Conn.Unsubscribe(cfgSub)

	for s.interval == 0 {
		select {
		case <-ctx.Done():
			return
		case msg := <-cfgSub.Channel():
			s.apply(msg.Payload)
		}
	}

	timer := time.NewTimer(0)
	<-timer.C
	for {
		if ctx.Err() != nil {
			return
		}
		_ = s.Console.WriteByte(s.mark)
		timer.Reset(s.interval)

	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case msg := <-cfgSub.Channel():
				s.apply(msg.Payload)
			case <-timer.C:
				break wait
			}
		}
	}
}
