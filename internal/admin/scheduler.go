package admin

import "time"

// Ticker is a cancellable recurring schedule.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a cancellable one-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler creates tickers and timers. Tests substitute a manual one.
type Scheduler interface {
	Every(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler uses the wall clock.
type RealScheduler struct{}

func (RealScheduler) Every(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
