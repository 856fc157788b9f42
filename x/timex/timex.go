package timex

import "time"

// Ms converts a millisecond count to a Duration.
func Ms(ms uint32) time.Duration { return time.Duration(ms) * time.Millisecond }
