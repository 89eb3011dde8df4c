package frame

import "time"

// Clock abstracts wall time and timer scheduling so gesture and idle timing
// can be tested without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the stoppable handle returned by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it expired.
	Stop() bool
}

// systemClock delegates to the time package.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the time package. Managers default
// to it when no clock is configured.
func SystemClock() Clock { return systemClock{} }
