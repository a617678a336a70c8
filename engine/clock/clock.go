// package clock provides the timers used by playback. Timer callbacks never run on a timer goroutine: the system clock
// posts them onto the owner's loop queue, and the manual clock runs them synchronously while virtual time is advanced.
package clock

import "time"

// Timer is a pending one-shot callback created by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the timer from firing.
	//
	// Returns:
	//   - bool: true if the call stopped the timer, false if it had already fired or been stopped
	Stop() bool
}

// Clock is a monotonic time source able to schedule one-shot callbacks on the caller's loop.
type Clock interface {
	// Now returns the current time of the clock.
	//
	// Returns:
	//   - time.Time: the current time
	Now() time.Time

	// AfterFunc schedules f to run on the loop after d has elapsed.
	//
	// Parameters:
	//   - d: the delay before f runs
	//   - f: the callback
	//
	// Returns:
	//   - Timer: a handle that can cancel the callback
	AfterFunc(d time.Duration, f func()) Timer
}
