package render_loop

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
)

// RenderLoopBuilderOption is a functional option applied to a render loop during construction via NewRenderLoop.
type RenderLoopBuilderOption func(*renderLoop)

// WithStats sets the receiver of presented and skipped frame events, typically the profiler.
//
// Parameters:
//   - stats: the stats receiver
//
// Returns:
//   - RenderLoopBuilderOption: a function that applies the stats receiver to a render loop
func WithStats(stats Stats) RenderLoopBuilderOption {
	return func(l *renderLoop) {
		l.stats = stats
	}
}

// WithLogger sets the structured logger used to report skipped frames.
func WithLogger(logger *slog.Logger) RenderLoopBuilderOption {
	return func(l *renderLoop) {
		l.logger = logger
	}
}

// WithClock sets the clock used to schedule the redraw of a frame skipped during variable-rate playback.
// It should run callbacks on the same loop as the scheduler's clock.
//
// Parameters:
//   - c: the clock
//
// Returns:
//   - RenderLoopBuilderOption: a function that applies the clock to a render loop
func WithClock(c clock.Clock) RenderLoopBuilderOption {
	return func(l *renderLoop) {
		l.clock = c
	}
}

// WithRetryDelay overrides DefaultRetryDelay. Non-positive values are ignored.
func WithRetryDelay(d time.Duration) RenderLoopBuilderOption {
	return func(l *renderLoop) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}
