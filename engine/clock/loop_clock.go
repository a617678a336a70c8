package clock

import "time"

// loopClock is the implementation of Clock backed by the runtime timer, posting callbacks to a loop.
type loopClock struct {
	post func(func())
}

var _ Clock = &loopClock{}

// NewLoopClock creates a Clock whose callbacks are handed to post instead of running on the timer goroutine.
// post is typically a window's Post method, which queues the task for the main loop and wakes it.
//
// Parameters:
//   - post: enqueues a task on the loop goroutine; must be safe to call from any goroutine
//
// Returns:
//   - Clock: the loop clock
func NewLoopClock(post func(func())) Clock {
	if post == nil {
		panic("clock: NewLoopClock requires a post function")
	}
	return &loopClock{post: post}
}

func (c *loopClock) Now() time.Time {
	return time.Now()
}

func (c *loopClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		c.post(f)
	})
}
