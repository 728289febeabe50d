package idle

import "time"

// Clock creates the single timer the monitor needs.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// Timer follows time.Timer semantics (Go 1.23+: Reset and Stop discard any
// pending fire).
type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration) bool
	Stop() bool
}

type realClock struct{}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
func (r realTimer) Stop() bool { return r.t.Stop() }
