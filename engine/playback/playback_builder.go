package playback

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
)

// SchedulerBuilderOption is a functional option for configuring a Scheduler.
type SchedulerBuilderOption func(*scheduler)

// WithMode sets the pacing policy. Defaults to ModeVariableRate.
//
// Parameters:
//   - mode: the pacing policy
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithMode(mode Mode) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.mode = mode
	}
}

// WithLoop sets whether playback wraps to the first frame at the end. Defaults to true.
//
// Parameters:
//   - loop: whether playback loops
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithLoop(loop bool) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.loop = loop
	}
}

// WithClock sets the clock used for variable-rate timers. Required before ArmAdvance is used.
//
// Parameters:
//   - c: the clock
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithClock(c clock.Clock) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.clock = c
	}
}

// WithAutoStart sets whether the scheduler starts in the playing state. When false it starts idle
// and waits for Play. Defaults to true.
//
// Parameters:
//   - autoStart: whether to start playing
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithAutoStart(autoStart bool) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.autoStart = autoStart
	}
}

// WithOnComplete sets a hook called once when non-looping playback reaches its last frame.
//
// Parameters:
//   - f: the completion hook
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithOnComplete(f func()) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.onComplete = f
	}
}

// WithLogger sets the logger for state transitions.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SchedulerBuilderOption {
	return func(s *scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}
