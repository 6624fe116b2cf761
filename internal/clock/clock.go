// Package clock provides the millisecond timer exposed alongside the socket API.
package clock

import "time"

var start = time.Now()

// Milliseconds returns monotonic milliseconds elapsed since process start.
// The value wraps after about 49.7 days; use Since for elapsed intervals.
func Milliseconds() uint32 {
	return uint32(time.Since(start).Milliseconds())
}

// Since returns the milliseconds elapsed since a value previously returned by
// Milliseconds. Unsigned arithmetic keeps the result correct across one wrap.
func Since(ms uint32) uint32 {
	return Milliseconds() - ms
}

// Duration converts a millisecond count to a time.Duration.
func Duration(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
