// pkg/utils/clock_unix.go

package utils

import "time"

var started = time.Now()

// Clock returns the monotonic time since the process started.
func Clock() time.Duration {
	return time.Since(started)
}
