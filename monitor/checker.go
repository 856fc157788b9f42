// Package monitor checks a board's console trace as seen from the host:
// the boot lines arrive first and exactly, then only heartbeat marks,
// never closer together than the heartbeat interval.
package monitor

import (
	"bytes"
	"fmt"
	"time"

	"tsim7670g-go/services/config"
)

// Properties reported in a Violation.
const (
	PropBootLines       = "boot-lines"
	PropAttachDelay     = "attach-delay"
	PropHeartbeatByte   = "heartbeat-byte"
	PropHeartbeatPeriod = "heartbeat-period"
	PropNoOutput        = "no-output"
)

// Violation is the first observed departure from the expected trace.
type Violation struct {
	Property string
	Offset   int // byte offset in the stream
	At       time.Time
	Detail   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s at byte %d: %s", v.Property, v.Offset, v.Detail)
}

// Expect is the trace a board profile should produce.
type Expect struct {
	Lines       []string
	Mark        byte
	AttachDelay time.Duration
	Interval    time.Duration
	// Tolerance is subtracted from Interval before comparing mark gaps,
	// to absorb host-side read batching.
	Tolerance time.Duration
}

func ExpectFor(b config.Board, tolerance time.Duration) Expect {
	return Expect{
		Lines:       []string{b.Greeting, b.Status},
		Mark:        b.HeartbeatMark,
		AttachDelay: b.AttachDelay,
		Interval:    b.HeartbeatInterval,
		Tolerance:   tolerance,
	}
}

// Checker consumes timestamped bytes. It is not safe for concurrent use.
type Checker struct {
	exp   Expect
	start time.Time // zero when the board's reset instant is unknown

	// syncing holds while a checker with unknown start has not yet found
	// either the greeting or a heartbeat mark.
	syncing bool
	joined  bool
	skipped int

	offset   int
	line     []byte
	lineIdx  int
	marks    int
	lastMark time.Time
	booted   bool
	bootedAt time.Time
	err      *Violation
}

// maxSyncLine bounds the bytes held while looking for the greeting.
const maxSyncLine = 256

// NewChecker returns a checker. Pass the zero time for start when the
// board was not reset under observation: the attach delay is then not
// checked, and the stream may begin mid-run. Bytes are skipped up to the
// first complete greeting line or the first mark at a line start.
func NewChecker(exp Expect, start time.Time) *Checker {
	return &Checker{exp: exp, start: start, syncing: start.IsZero()}
}

// Feed checks one byte received at at. It returns the first violation
// and keeps returning it for every later byte.
func (c *Checker) Feed(at time.Time, b byte) error {
	if c.err != nil {
		return c.err
	}
	defer func() { c.offset++ }()

	if c.offset == 0 && !c.start.IsZero() && at.Sub(c.start) < c.exp.AttachDelay {
		return c.fail(PropAttachDelay, at, fmt.Sprintf("first byte after %v, want >= %v", at.Sub(c.start), c.exp.AttachDelay))
	}

	if c.syncing {
		if b != c.exp.Mark || len(c.line) > 0 {
			c.sync(at, b)
			return nil
		}
		// Attached during the heartbeat phase.
		c.syncing = false
		c.joined = true
		c.lineIdx = len(c.exp.Lines)
	}

	if c.lineIdx < len(c.exp.Lines) {
		return c.feedLine(at, b)
	}

	if b != c.exp.Mark {
		return c.fail(PropHeartbeatByte, at, fmt.Sprintf("got %q, want %q", b, c.exp.Mark))
	}
	if c.marks > 0 {
		floor := c.exp.Interval - c.exp.Tolerance
		if gap := at.Sub(c.lastMark); gap < floor {
			return c.fail(PropHeartbeatPeriod, at, fmt.Sprintf("gap %v, want >= %v", gap, floor))
		}
	}
	c.marks++
	c.lastMark = at
	return nil
}

// FeedChunk feeds p as if every byte arrived at the same instant.
func (c *Checker) FeedChunk(at time.Time, p []byte) error {
	for _, b := range p {
		if err := c.Feed(at, b); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) sync(at time.Time, b byte) {
	if b != '\n' {
		if len(c.line) >= maxSyncLine {
			c.skipped += len(c.line)
			c.line = c.line[:0]
		}
		c.line = append(c.line, b)
		return
	}
	got := bytes.TrimSuffix(c.line, []byte{'\r'})
	if len(c.exp.Lines) > 0 && string(got) == c.exp.Lines[0] {
		c.syncing = false
		c.lineIdx = 1
		c.finishLines(at)
	} else {
		c.skipped += len(c.line) + 1
	}
	c.line = c.line[:0]
}

func (c *Checker) finishLines(at time.Time) {
	if c.lineIdx == len(c.exp.Lines) {
		c.booted = true
		c.bootedAt = at
	}
}

func (c *Checker) feedLine(at time.Time, b byte) error {
	want := c.exp.Lines[c.lineIdx]
	if b == '\n' {
		got := bytes.TrimSuffix(c.line, []byte{'\r'})
		if string(got) != want {
			return c.fail(PropBootLines, at, fmt.Sprintf("line %d = %q, want %q", c.lineIdx+1, got, want))
		}
		c.line = c.line[:0]
		c.lineIdx++
		c.finishLines(at)
		return nil
	}
	c.line = append(c.line, b)
	if !isLinePrefix(c.line, want) {
		return c.fail(PropBootLines, at, fmt.Sprintf("line %d diverges: %q, want %q", c.lineIdx+1, c.line, want))
	}
	return nil
}

// isLinePrefix allows a single trailing '\r' after the full line.
func isLinePrefix(got []byte, want string) bool {
	if len(got) <= len(want) {
		return string(got) == want[:len(got)]
	}
	return len(got) == len(want)+1 && got[len(want)] == '\r' && string(got[:len(want)]) == want
}

func (c *Checker) fail(prop string, at time.Time, detail string) error {
	c.err = &Violation{Property: prop, Offset: c.offset, At: at, Detail: detail}
	return c.err
}

// Err returns the recorded violation, or nil.
func (c *Checker) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// Verdict judges the stream once it has ended: the recorded violation,
// or a missing-output violation when nothing proves the board is alive.
// With a known start the boot lines are required.
func (c *Checker) Verdict() error {
	if c.err != nil {
		return c.err
	}
	if !c.start.IsZero() && !c.booted {
		return &Violation{Property: PropBootLines, Offset: c.offset, Detail: "boot lines never arrived"}
	}
	if !c.booted && c.marks == 0 {
		return &Violation{Property: PropNoOutput, Offset: c.offset, Detail: "no boot lines or heartbeat observed"}
	}
	return nil
}

// Booted reports whether the boot lines were seen.
func (c *Checker) Booted() bool        { return c.booted }
func (c *Checker) BootedAt() time.Time { return c.bootedAt }

// Joined reports whether the stream was picked up mid-heartbeat.
func (c *Checker) Joined() bool        { return c.joined }
func (c *Checker) Skipped() int        { return c.skipped }
func (c *Checker) Marks() int          { return c.marks }
func (c *Checker) LastMark() time.Time { return c.lastMark }
func (c *Checker) BytesSeen() int      { return c.offset }
