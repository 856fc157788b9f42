package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsim7670g-go/services/config"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const boot = "Hello from the T-SIM7670G S3!\nBoard setup complete. Waiting to initialize modem...\n"

func defaultExpect() Expect { return ExpectFor(config.Default(), 0) }

func TestChecker_EndToEndTrace(t *testing.T) {
	c := NewChecker(defaultExpect(), t0)

	require.NoError(t, c.FeedChunk(t0.Add(1000*time.Millisecond), []byte(boot)))
	require.True(t, c.Booted())

	for i, off := range []time.Duration{1001, 6001, 11001} {
		require.NoError(t, c.Feed(t0.Add(off*time.Millisecond), '.'), "mark %d", i)
	}
	assert.Equal(t, 3, c.Marks())
	assert.Equal(t, len(boot)+3, c.BytesSeen())
	assert.NoError(t, c.Err())
}

func TestChecker_CRLFAccepted(t *testing.T) {
	c := NewChecker(defaultExpect(), time.Time{})
	crlf := "Hello from the T-SIM7670G S3!\r\nBoard setup complete. Waiting to initialize modem...\r\n."
	require.NoError(t, c.FeedChunk(t0, []byte(crlf)))
	assert.Equal(t, 1, c.Marks())
}

func TestChecker_Violations(t *testing.T) {
	at := t0.Add(time.Second)
	cases := []struct {
		name  string
		start time.Time
		feed  func(c *Checker) error
		prop  string
	}{
		{
			name:  "output before attach delay",
			start: t0,
			feed:  func(c *Checker) error { return c.FeedChunk(t0.Add(500*time.Millisecond), []byte(boot)) },
			prop:  PropAttachDelay,
		},
		{
			name:  "mark before greeting after reset",
			start: t0,
			feed:  func(c *Checker) error { return c.FeedChunk(at, []byte("."+boot)) },
			prop:  PropBootLines,
		},
		{
			name:  "lines swapped",
			start: t0,
			feed: func(c *Checker) error {
				return c.FeedChunk(at, []byte("Board setup complete. Waiting to initialize modem...\n"))
			},
			prop: PropBootLines,
		},
		{
			name:  "greeting truncated",
			start: t0,
			feed:  func(c *Checker) error { return c.FeedChunk(at, []byte("Hello from\n")) },
			prop:  PropBootLines,
		},
		{
			name: "status line wrong after greeting",
			feed: func(c *Checker) error {
				return c.FeedChunk(t0, []byte("Hello from the T-SIM7670G S3!\nBoard ready\n"))
			},
			prop: PropBootLines,
		},
		{
			name: "newline after mark",
			feed: func(c *Checker) error { return c.FeedChunk(t0, []byte(boot+".\n")) },
			prop: PropHeartbeatByte,
		},
		{
			name: "joined stream then garbage",
			feed: func(c *Checker) error { return c.FeedChunk(t0, []byte(".x")) },
			prop: PropHeartbeatByte,
		},
		{
			name: "marks too close",
			feed: func(c *Checker) error {
				if err := c.FeedChunk(t0, []byte(boot+".")); err != nil {
					return err
				}
				return c.Feed(t0.Add(4999*time.Millisecond), '.')
			},
			prop: PropHeartbeatPeriod,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(defaultExpect(), tc.start)
			err := tc.feed(c)
			require.Error(t, err)

			var v *Violation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tc.prop, v.Property)
			assert.Equal(t, err, c.Err())

			// Sticky: later bytes report the same violation.
			assert.Same(t, v, c.Feed(t0.Add(time.Hour), '.'))
		})
	}
}

func TestChecker_ToleranceAbsorbsJitter(t *testing.T) {
	c := NewChecker(ExpectFor(config.Default(), 50*time.Millisecond), time.Time{})
	require.NoError(t, c.FeedChunk(t0, []byte(boot+".")))
	require.NoError(t, c.Feed(t0.Add(4980*time.Millisecond), '.'))
	require.Error(t, c.Feed(t0.Add(4980*time.Millisecond+4900*time.Millisecond), '.'))
}

func TestViolation_Error(t *testing.T) {
	v := &Violation{Property: PropHeartbeatByte, Offset: 84, Detail: `got '\n', want '.'`}
	assert.Equal(t, `heartbeat-byte at byte 84: got '\n', want '.'`, v.Error())
}

func TestChecker_JoinedMidHeartbeat(t *testing.T) {
	c := NewChecker(defaultExpect(), time.Time{})

	require.NoError(t, c.Feed(t0, '.'))
	require.NoError(t, c.Feed(t0.Add(5*time.Second), '.'))

	assert.True(t, c.Joined())
	assert.False(t, c.Booted())
	assert.Equal(t, 2, c.Marks())
	assert.Equal(t, t0.Add(5*time.Second), c.LastMark())
	assert.NoError(t, c.Verdict())
}

func TestChecker_SkipsPartialLineBeforeMarks(t *testing.T) {
	c := NewChecker(defaultExpect(), time.Time{})

	// Attached in the middle of the status line.
	require.NoError(t, c.FeedChunk(t0, []byte("initialize modem...\n")))
	require.NoError(t, c.Feed(t0.Add(time.Millisecond), '.'))

	assert.True(t, c.Joined())
	assert.Equal(t, len("initialize modem...\n"), c.Skipped())
	assert.Equal(t, 1, c.Marks())
	assert.NoError(t, c.Verdict())
}

func TestChecker_SyncsOnGreetingAfterNoise(t *testing.T) {
	c := NewChecker(defaultExpect(), time.Time{})

	require.NoError(t, c.FeedChunk(t0, []byte("\x00\xffrst:0x1 (POWERON)\r\n"+boot+".")))

	assert.True(t, c.Booted())
	assert.False(t, c.Joined())
	assert.Equal(t, 1, c.Marks())
	assert.NoError(t, c.Verdict())
}

func TestChecker_LongNoiseIsBounded(t *testing.T) {
	c := NewChecker(defaultExpect(), time.Time{})
	noise := make([]byte, 3*maxSyncLine)
	for i := range noise {
		noise[i] = 'z'
	}
	require.NoError(t, c.FeedChunk(t0, noise))
	assert.LessOrEqual(t, len(c.line), maxSyncLine)
	assert.Equal(t, len(noise)-len(c.line), c.Skipped())
}

func TestChecker_Verdict(t *testing.T) {
	t.Run("silent stream", func(t *testing.T) {
		c := NewChecker(defaultExpect(), time.Time{})
		var v *Violation
		require.ErrorAs(t, c.Verdict(), &v)
		assert.Equal(t, PropNoOutput, v.Property)
	})
	t.Run("noise only", func(t *testing.T) {
		c := NewChecker(defaultExpect(), time.Time{})
		require.NoError(t, c.FeedChunk(t0, []byte("partial line\n")))
		var v *Violation
		require.ErrorAs(t, c.Verdict(), &v)
		assert.Equal(t, PropNoOutput, v.Property)
	})
	t.Run("reset but no boot lines", func(t *testing.T) {
		c := NewChecker(defaultExpect(), t0)
		var v *Violation
		require.ErrorAs(t, c.Verdict(), &v)
		assert.Equal(t, PropBootLines, v.Property)
	})
	t.Run("boot lines only", func(t *testing.T) {
		c := NewChecker(defaultExpect(), t0)
		require.NoError(t, c.FeedChunk(t0.Add(time.Second), []byte(boot)))
		assert.NoError(t, c.Verdict())
	})
	t.Run("violation wins", func(t *testing.T) {
		c := NewChecker(defaultExpect(), time.Time{})
		err := c.FeedChunk(t0, []byte(boot+"x"))
		require.Error(t, err)
		assert.Equal(t, err, c.Verdict())
	})
}
