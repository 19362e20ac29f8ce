package shared

import "time"

// Clock abstracts wall time and one-shot timers so the 12-hour credential
// window and the answer auto-advance can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable one-shot schedule. Stop reports whether the timer
// was stopped before firing.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
