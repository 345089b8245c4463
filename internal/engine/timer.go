package engine

import "time"

// Timer is a pending single-fire timeout. Stop reports whether the timer was
// cancelled before its callback ran; a false return means the callback has
// already fired or is about to, and the generation check inside the callback
// is what neutralizes it.
type Timer interface {
	Stop() bool
}

// TimerFunc schedules fn to run once after d and returns a handle to cancel
// it. The engine uses time.AfterFunc in production; tests substitute an
// implementation that fires on demand.
type TimerFunc func(d time.Duration, fn func()) Timer

func realTimer(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
