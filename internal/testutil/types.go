package testutil

import "time"

// ExecutionRecord holds the start and end times of a single Process call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}
