// package render_loop draws the scheduler's current frame once per host refresh and paces the scheduler
// according to its mode.
package render_loop

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
	"github.com/Carmen-Shannon/oxy-apng/engine/playback"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/pipeline"
)

// Host is the view capability the loop needs: a way to ask for another refresh callback.
type Host interface {
	// RequestRedraw schedules a refresh callback on the host's loop.
	RequestRedraw()
}

// FrameRenderer is the per-frame subset of renderer.Renderer.
type FrameRenderer interface {
	BeginFrame() error
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error
	EndFrame() error
	Present()
	WaitIdle()
}

// Frames is the read-only subset of resource_binder.ResourceBinder.
type Frames interface {
	TextureAt(i int) (bind_group_provider.BindGroupProvider, error)
	Mesh() bind_group_provider.BindGroupProvider
	Pipeline() pipeline.Pipeline
}

// Stats receives one event per refresh that drew or skipped a frame. The profiler implements it.
type Stats interface {
	FramePresented()
	FrameSkipped()
}

// DefaultRetryDelay is how long variable-rate playback waits before redrawing a skipped frame.
const DefaultRetryDelay = 16 * time.Millisecond

type renderLoop struct {
	renderer  FrameRenderer
	frames    Frames
	scheduler playback.Scheduler
	host      Host
	stats     Stats
	logger    *slog.Logger

	clock      clock.Clock
	retryDelay time.Duration
	retry      clock.Timer

	bindGroups []bind_group_provider.BindGroupProvider
}

// RenderLoop submits one quad draw per host refresh.
type RenderLoop interface {
	// Tick draws the scheduler's current frame, presents it and waits for the GPU to finish, then paces the
	// scheduler: variable-rate playback arms the frame's timer, fixed-rate playback advances inline.
	// Nothing is drawn when the scheduler is idle or stopped. A paused scheduler is drawn but not advanced.
	//
	// A frame that cannot be started or submitted is skipped without advancing and nil is returned.
	//
	// Returns:
	//   - error: a fatal error, wrapping common.ErrPipelineMissing or common.ErrIndex
	Tick() error
}

var _ RenderLoop = &renderLoop{}

// NewRenderLoop creates a RenderLoop.
//
// Parameters:
//   - r: the renderer frames are drawn with
//   - frames: the uploaded frame textures, quad mesh and pipeline
//   - scheduler: the playback state machine selecting the current frame
//   - host: the view that delivers refresh callbacks
//   - options: variadic list of RenderLoopBuilderOption functions
//
// Returns:
//   - RenderLoop: the render loop
func NewRenderLoop(r FrameRenderer, frames Frames, scheduler playback.Scheduler, host Host, options ...RenderLoopBuilderOption) RenderLoop {
	l := &renderLoop{
		renderer:   r,
		frames:     frames,
		scheduler:  scheduler,
		host:       host,
		logger:     slog.New(slog.DiscardHandler),
		retryDelay: DefaultRetryDelay,
		bindGroups: make([]bind_group_provider.BindGroupProvider, 1),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *renderLoop) Tick() error {
	state := l.scheduler.State()
	if state != playback.StatePlaying && state != playback.StatePaused {
		return nil
	}

	index := l.scheduler.CurrentIndex()
	texture, err := l.frames.TextureAt(index)
	if err != nil {
		return fmt.Errorf("render frame %d: %w", index, err)
	}

	if err := l.renderer.BeginFrame(); err != nil {
		return l.skip(index, err)
	}

	l.bindGroups[0] = texture
	if err := l.renderer.DrawCall(l.frames.Pipeline(), l.frames.Mesh(), l.bindGroups); err != nil {
		return fmt.Errorf("render frame %d: %w", index, err)
	}

	if err := l.renderer.EndFrame(); err != nil {
		return l.skip(index, err)
	}
	l.renderer.Present()
	// bounds the work in flight to this frame
	l.renderer.WaitIdle()

	if l.stats != nil {
		l.stats.FramePresented()
	}

	if !l.scheduler.IsRunning() {
		return nil
	}
	switch l.scheduler.Mode() {
	case playback.ModeFixedRate:
		l.scheduler.Advance()
	case playback.ModeVariableRate:
		// a redraw requested by the host mid-frame must not restart the frame's timer
		if !l.scheduler.Armed() {
			l.scheduler.ArmAdvance(l.host.RequestRedraw)
		}
	}
	return nil
}

// skip records a transient frame failure. No advance timer was armed for the frame, so variable-rate
// playback schedules one delayed redraw on the loop clock. Without a clock the next host refresh retries.
func (l *renderLoop) skip(index int, err error) error {
	if !errors.Is(err, common.ErrTransientFrame) {
		return fmt.Errorf("render frame %d: %w", index, err)
	}

	l.logger.Debug("frame skipped", slog.Int("index", index), slog.Any("error", err))
	if l.stats != nil {
		l.stats.FrameSkipped()
	}
	if l.clock == nil || l.retry != nil {
		return nil
	}
	if l.scheduler.IsRunning() && l.scheduler.Mode() == playback.ModeVariableRate && !l.scheduler.Armed() {
		l.retry = l.clock.AfterFunc(l.retryDelay, func() {
			l.retry = nil
			if l.scheduler.IsRunning() {
				l.host.RequestRedraw()
			}
		})
	}
	return nil
}
