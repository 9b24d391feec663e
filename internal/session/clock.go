package session

import "time"

// Clock abstracts wall-clock reads so the session core is deterministic
// under test. All remaining-time and dwell-time math derives from Now()
// deltas, never from counting ticks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production Clock.
var SystemClock Clock = systemClock{}

// Scheduler abstracts the recurring 1-second tick. Schedule invokes fn
// every interval until the returned stop function is called.
type Scheduler interface {
	Schedule(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler runs the tick on a time.Ticker goroutine.
type TickerScheduler struct{}

// Schedule starts a goroutine driving fn off a ticker. Stop is idempotent.
func (TickerScheduler) Schedule(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		ticker.Stop()
		close(done)
	}
}
