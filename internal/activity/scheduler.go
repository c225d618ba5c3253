package activity

import "time"

// Timer is a pending delay that can be released before it fires.
type Timer interface {
	Stop() bool
}

// Scheduler arms delays. The runner owns every Timer it receives and stops
// them on transition or Close.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler runs delays on the runtime timer wheel.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
