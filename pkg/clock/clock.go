// Package clock abstracts wall-clock time so the agent's system prompt can be
// rendered deterministically when responses are replayed from the cache.
package clock

import "time"

// CacheTime is the instant the fixed clock reports in cache mode.
var CacheTime = time.Date(2023, time.September, 27, 0, 0, 0, 0, time.Local)

// Layout is how "now" is rendered into prompts.
const Layout = "2006-01-02 15:04:05"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// New returns the fixed cache clock when cache is true, the system clock otherwise.
func New(cache bool) Clock {
	if cache {
		return Fixed{T: CacheTime}
	}
	return Real{}
}

// Format renders c's current time with Layout.
func Format(c Clock) string {
	return c.Now().Format(Layout)
}
