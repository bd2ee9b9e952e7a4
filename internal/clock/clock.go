// Package clock abstracts time so the facade's ack timeout, poll spacing
// and reconnect pause run under virtual time in tests.
package clock

import "time"

// Clock is the minimal time surface the client needs.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (realClock) Sleep(d time.Duration)                  { time.Sleep(d) }

// Real returns the standard-library clock.
func Real() Clock { return realClock{} }
