package profiler

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Profiler tracks presented and skipped frame rates and memory statistics for performance monitoring.
// Outputs stats to the logger at a configurable interval. It is safe for concurrent use.
type Profiler struct {
	mu             sync.Mutex
	now            func() time.Time
	logger         *slog.Logger
	updateInterval time.Duration
	readMemStats   bool

	presented      int
	skipped        int
	totalPresented uint64
	totalSkipped   uint64

	lastTime       time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with the given options.
// Update interval defaults to 1 second and time is read from the system clock.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		logger:         slog.Default(),
		updateInterval: time.Second,
		readMemStats:   true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// FramePresented records a frame that reached the display.
// Logs performance statistics when the update interval has elapsed.
func (p *Profiler) FramePresented() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presented++
	p.totalPresented++
	p.flush()
}

// FrameSkipped records a refresh whose frame could not be acquired or submitted.
// Logs performance statistics when the update interval has elapsed.
func (p *Profiler) FrameSkipped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped++
	p.totalSkipped++
	p.flush()
}

// Totals returns the number of presented and skipped frames since the profiler was created.
//
// Returns:
//   - uint64: presented frames
//   - uint64: skipped frames
func (p *Profiler) Totals() (presented, skipped uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPresented, p.totalSkipped
}

// flush logs and resets the interval counters once the update interval has elapsed. Callers hold p.mu.
//
// Returns:
//   - bool: true if stats were logged, false otherwise
func (p *Profiler) flush() bool {
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	attrs := []slog.Attr{
		slog.Float64("presented_fps", float64(p.presented)/elapsed.Seconds()),
		slog.Int("skipped", p.skipped),
	}

	if p.readMemStats {
		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024
		allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
			}
		}

		attrs = append(attrs,
			slog.Float64("heap_mb", allocMB),
			slog.Float64("alloc_rate_mb_s", allocRateMB),
			slog.Uint64("gc", uint64(gcCount)),
			slog.Uint64("gc_last_pause_us", lastPauseUs),
			slog.Uint64("gc_max_pause_us", maxPauseUs),
			slog.Float64("sys_mb", sysMB),
		)
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
	}

	p.logger.LogAttrs(context.Background(), slog.LevelInfo, "profiler", attrs...)

	p.presented = 0
	p.skipped = 0
	p.lastTime = currentTime
	return true
}
