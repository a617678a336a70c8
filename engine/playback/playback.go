// package playback contains the scheduler that decides which frame is current and when playback advances or halts.
// It holds only indices, durations and timers, never GPU resources.
package playback

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
)

// Mode selects the pacing policy of a scheduler.
type Mode int

const (
	// ModeVariableRate paces frames by their authored durations using a one-shot timer per frame.
	ModeVariableRate Mode = iota
	// ModeFixedRate advances once per host refresh callback and ignores authored durations.
	ModeFixedRate
)

func (m Mode) String() string {
	switch m {
	case ModeVariableRate:
		return "variable"
	case ModeFixedRate:
		return "fixed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration value ("fixed" or "variable") to a Mode.
//
// Parameters:
//   - s: the mode name
//
// Returns:
//   - Mode: the parsed mode
//   - error: an error if s names no mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "variable":
		return ModeVariableRate, nil
	case "fixed":
		return ModeFixedRate, nil
	default:
		return 0, fmt.Errorf("playback: unknown mode %q", s)
	}
}

// State is the lifecycle state of a scheduler.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Timeline is the read-only view of frame timing the scheduler needs. A frame_store.FrameStore satisfies it.
type Timeline interface {
	Count() int
	DurationAt(index int) (time.Duration, error)
}

// Snapshot is a read-only copy of the playback state.
type Snapshot struct {
	Index   int
	State   State
	Mode    Mode
	Loop    bool
	Running bool
}

// scheduler is the implementation of the Scheduler interface.
type scheduler struct {
	frames Timeline
	count  int
	clock  clock.Clock
	logger *slog.Logger

	index     int
	state     State
	mode      Mode
	loop      bool
	autoStart bool

	timer      clock.Timer
	generation uint64
	completed  bool
	onComplete func()
}

// Scheduler is the playback state machine. It is owned by a single loop goroutine and is not safe for concurrent use;
// timer callbacks re-enter it only through the loop via the injected clock.
type Scheduler interface {
	// Advance moves to the next frame. It is called once per presented frame and is a no-op unless playing.
	// At the end of the sequence a looping scheduler wraps to 0. Without looping, variable-rate playback stops
	// with the index held at the last frame, and fixed-rate playback holds the last frame while still playing.
	Advance()

	// ArmAdvance starts a one-shot timer for the current frame's duration. When it fires the scheduler advances
	// and, if still playing, calls then. Arming replaces any pending timer. It only applies to variable-rate playback.
	//
	// Parameters:
	//   - then: called after the advance, typically a request for the next refresh; may be nil
	ArmAdvance(then func())

	// Armed reports whether an advance timer is pending.
	Armed() bool

	// Stop moves to the stopped state from any state, resets the index to 0 and invalidates any pending timer.
	Stop()

	// Play starts playback from frame 0 when idle or stopped, or resumes when paused.
	Play()

	// Pause cancels the pending timer and keeps the current index.
	Pause()

	// Resume continues paused playback.
	Resume()

	// Reconfigure stops playback, applies the new pacing and loop settings, and plays again from frame 0.
	//
	// Parameters:
	//   - mode: the new pacing policy
	//   - loop: whether playback wraps at the end
	Reconfigure(mode Mode, loop bool)

	// Snapshot returns a copy of the current playback state.
	Snapshot() Snapshot

	// IsRunning reports whether the scheduler is playing, i.e. whether the current index will be rendered and advanced.
	IsRunning() bool

	CurrentIndex() int
	State() State
	Mode() Mode
	Loop() bool
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler over the given frame timeline.
// By default it plays immediately from index 0 in variable-rate mode with looping enabled.
//
// Parameters:
//   - frames: the frame timing source, with at least one frame
//   - options: optional configuration functions
//
// Returns:
//   - Scheduler: the scheduler
func NewScheduler(frames Timeline, options ...SchedulerBuilderOption) Scheduler {
	if frames == nil || frames.Count() < 1 {
		panic("playback: NewScheduler requires a timeline with at least one frame")
	}
	s := &scheduler{
		frames:    frames,
		count:     frames.Count(),
		mode:      ModeVariableRate,
		loop:      true,
		autoStart: true,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.autoStart {
		s.state = StatePlaying
	} else {
		s.state = StateIdle
	}
	return s
}

func (s *scheduler) Advance() {
	if s.state != StatePlaying {
		return
	}
	if s.index+1 < s.count {
		s.index++
		return
	}
	if s.loop {
		s.index = 0
		return
	}
	if s.mode == ModeVariableRate {
		s.setState(StateStopped)
	}
	s.complete()
}

func (s *scheduler) ArmAdvance(then func()) {
	if s.state != StatePlaying || s.mode != ModeVariableRate {
		return
	}
	if s.clock == nil {
		panic("playback: ArmAdvance requires a clock, see WithClock")
	}
	d, err := s.frames.DurationAt(s.index)
	if err != nil {
		s.logger.Error("cannot arm advance", slog.Int("index", s.index), slog.Any("error", err))
		return
	}

	s.cancelTimer()
	gen := s.generation
	s.timer = s.clock.AfterFunc(d, func() {
		if gen != s.generation || !s.IsRunning() {
			return
		}
		s.timer = nil
		s.Advance()
		if then != nil && s.IsRunning() {
			then()
		}
	})
}

func (s *scheduler) Armed() bool {
	return s.timer != nil
}

func (s *scheduler) Stop() {
	s.cancelTimer()
	s.index = 0
	s.completed = false
	s.setState(StateStopped)
}

func (s *scheduler) Play() {
	switch s.state {
	case StatePlaying:
		return
	case StatePaused:
		s.Resume()
		return
	}
	s.cancelTimer()
	s.index = 0
	s.completed = false
	s.setState(StatePlaying)
}

func (s *scheduler) Pause() {
	if s.state != StatePlaying {
		return
	}
	s.cancelTimer()
	s.setState(StatePaused)
}

func (s *scheduler) Resume() {
	if s.state != StatePaused {
		return
	}
	s.setState(StatePlaying)
}

func (s *scheduler) Reconfigure(mode Mode, loop bool) {
	s.Stop()
	s.mode = mode
	s.loop = loop
	s.logger.Info("playback reconfigured", slog.String("mode", mode.String()), slog.Bool("loop", loop))
	s.Play()
}

func (s *scheduler) Snapshot() Snapshot {
	return Snapshot{
		Index:   s.index,
		State:   s.state,
		Mode:    s.mode,
		Loop:    s.loop,
		Running: s.IsRunning(),
	}
}

func (s *scheduler) IsRunning() bool {
	return s.state == StatePlaying
}

func (s *scheduler) CurrentIndex() int {
	return s.index
}

func (s *scheduler) State() State {
	return s.state
}

func (s *scheduler) Mode() Mode {
	return s.mode
}

func (s *scheduler) Loop() bool {
	return s.loop
}

// cancelTimer stops the pending timer and bumps the generation so a callback already queued on the loop is ignored.
func (s *scheduler) cancelTimer() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *scheduler) setState(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("playback state", slog.String("from", s.state.String()), slog.String("to", next.String()), slog.Int("index", s.index))
	s.state = next
}

func (s *scheduler) complete() {
	if s.completed {
		return
	}
	s.completed = true
	s.logger.Debug("playback complete", slog.Int("index", s.index), slog.String("mode", s.mode.String()))
	if s.onComplete != nil {
		s.onComplete()
	}
}

// FixedInterval returns the refresh interval for fixed-rate playback at the given frames per second.
// Values <= 0 fall back to 30 frames per second.
//
// Parameters:
//   - fps: frames per second
//
// Returns:
//   - time.Duration: the interval between refresh callbacks
func FixedInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}
