package profiler

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
)

// ProfilerBuilderOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often statistics are logged.
//
// Parameters:
//   - d: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval to a profiler
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithLogger sets the logger statistics are written to.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the logger to a profiler
func WithLogger(logger *slog.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// WithClock sets the time source used to measure intervals.
//
// Parameters:
//   - c: the clock to read time from
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock to a profiler
func WithClock(c clock.Clock) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = c.Now
	}
}

// WithMemStats sets whether heap and GC statistics are read and logged alongside frame rates.
// Reading them briefly stops the world, so it can be disabled.
//
// Parameters:
//   - enabled: true to log memory statistics (default)
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the setting to a profiler
func WithMemStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.readMemStats = enabled
	}
}
