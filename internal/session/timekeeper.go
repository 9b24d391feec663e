package session

import "time"

// TimeKeeper tracks remaining exam time and per-question dwell time.
//
// Remaining time is recomputed from the start timestamp on every tick
// instead of decrementing a counter, so throttled or suspended tick
// scheduling cannot desynchronize it from real elapsed time.
type TimeKeeper struct {
	clock Clock

	limitSeconds      int
	startedAt         time.Time
	questionStartedAt time.Time
	timeLeft          int
	started           bool
}

// NewTimeKeeper creates a TimeKeeper using the given clock.
func NewTimeKeeper(clock Clock) *TimeKeeper {
	return &TimeKeeper{clock: clock}
}

// Start begins the countdown. Called once, when the exam actually starts
// (after password validation when the exam is gated).
func (k *TimeKeeper) Start(limitSeconds int) {
	now := k.clock.Now()
	k.limitSeconds = limitSeconds
	k.startedAt = now
	k.questionStartedAt = now
	k.timeLeft = limitSeconds
	k.started = true
}

// Tick recomputes remaining time from the wall clock, clamped at zero,
// and returns it. Callers decide what an expiry means; Tick itself has
// no side effects beyond updating the cached value.
func (k *TimeKeeper) Tick() int {
	if !k.started {
		return k.timeLeft
	}
	elapsed := int(k.clock.Now().Sub(k.startedAt) / time.Second)
	left := k.limitSeconds - elapsed
	if left < 0 {
		left = 0
	}
	k.timeLeft = left
	return left
}

// TimeLeft returns the last computed remaining seconds.
func (k *TimeKeeper) TimeLeft() int { return k.timeLeft }

// Started reports whether the countdown has begun.
func (k *TimeKeeper) Started() bool { return k.started }

// FlushDwell returns whole seconds spent on the current question since the
// last flush. Must be called before every navigation, break, and submission
// so dwell time is neither lost nor double counted. The question timestamp
// advances by the flushed whole seconds only; the sub-second remainder
// stays on the clock so repeated flushes cannot leak it.
func (k *TimeKeeper) FlushDwell() int {
	if !k.started {
		return 0
	}
	elapsed := k.clock.Now().Sub(k.questionStartedAt)
	if elapsed < 0 {
		return 0
	}
	spent := int(elapsed / time.Second)
	k.questionStartedAt = k.questionStartedAt.Add(time.Duration(spent) * time.Second)
	return spent
}

// TotalElapsedSeconds returns whole seconds since the exam started.
func (k *TimeKeeper) TotalElapsedSeconds() int {
	if !k.started {
		return 0
	}
	return int(k.clock.Now().Sub(k.startedAt) / time.Second)
}
