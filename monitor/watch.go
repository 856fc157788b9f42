package monitor

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// Watcher pumps a byte stream into a Checker.
type Watcher struct {
	Checker *Checker
	Log     *zap.Logger

	// Now stamps each read. Nil means time.Now.
	Now func() time.Time

	// IdleOnEOF treats io.EOF as "nothing yet" and keeps reading; serial
	// ports report an expired read timeout that way.
	IdleOnEOF bool
	// IdleWait is the pause after an idle read. Zero means 10ms.
	IdleWait time.Duration
}

type chunk struct {
	at   time.Time
	data []byte
	err  error
}

// Watch reads r until ctx ends, the stream fails, or a violation is seen.
// It returns the violation, a read error, or nil.
func (w *Watcher) Watch(ctx context.Context, r io.Reader) error {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	idle := w.IdleWait
	if idle <= 0 {
		idle = 10 * time.Millisecond
	}

	chunks := make(chan chunk, 16)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			c := chunk{at: now(), err: err}
			if n > 0 {
				c.data = append([]byte(nil), buf[:n]...)
			}
			if n == 0 && errors.Is(err, io.EOF) && w.IdleOnEOF {
				select {
				case <-ctx.Done():
					return
				case <-time.After(idle):
				}
				continue
			}
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return w.Checker.Err()
		case c := <-chunks:
			if len(c.data) > 0 {
				wasBooted, wasJoined := w.Checker.Booted(), w.Checker.Joined()
				before := w.Checker.Marks()
				if err := w.Checker.FeedChunk(c.at, c.data); err != nil {
					log.Error("trace violation", zap.Error(err))
					return err
				}
				if !wasBooted && w.Checker.Booted() {
					log.Info("boot lines received", zap.Time("at", w.Checker.BootedAt()))
				}
				if !wasJoined && w.Checker.Joined() {
					log.Info("joined heartbeat in progress", zap.Int("skipped", w.Checker.Skipped()))
				}
				if w.Checker.Marks() > before {
					log.Debug("heartbeat", zap.Int("marks", w.Checker.Marks()))
				}
			}
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					return w.Checker.Err()
				}
				log.Error("read failed", zap.Error(c.err))
				return c.err
			}
		}
	}
}
