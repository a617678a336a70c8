// package engine composes the animated image player: it decodes the source into a frame store, uploads the
// frames to the GPU once, and drives playback from the window's refresh callback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
	"github.com/Carmen-Shannon/oxy-apng/engine/config"
	"github.com/Carmen-Shannon/oxy-apng/engine/decoder"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/Carmen-Shannon/oxy-apng/engine/logger"
	"github.com/Carmen-Shannon/oxy-apng/engine/playback"
	"github.com/Carmen-Shannon/oxy-apng/engine/profiler"
	"github.com/Carmen-Shannon/oxy-apng/engine/render_loop"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/resource_binder"
	"github.com/Carmen-Shannon/oxy-apng/engine/window"
)

// engine implements the Engine interface.
// Every field below the options block is touched only on the window's loop goroutine.
type engine struct {
	source      string
	title       string
	pixelFormat common.PixelFormat
	presentMode renderer.PresentMode
	software    bool
	workers     int

	cfg        config.Config
	configFile string
	level      *slog.LevelVar
	logger     *slog.Logger

	profilingEnabled bool

	window    window.Window
	store     frame_store.FrameStore
	renderer  renderer.Renderer
	binder    resource_binder.ResourceBinder
	scheduler playback.Scheduler
	loop      render_loop.RenderLoop
	profiler  *profiler.Profiler

	fixedFrameRate int

	errMu sync.Mutex
	err   error
}

// Engine is the animated image player.
// It owns the frame store, GPU resources, scheduler and window, and runs playback on the window's loop goroutine.
//
// The control methods (Stop, Pause, Resume, Restart, Configure, Quit) may be called from any goroutine; the
// change is applied on the loop goroutine before the next refresh.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// FrameStore returns the decoded frames.
	//
	// Returns:
	//   - frame_store.FrameStore: the immutable frame store
	FrameStore() frame_store.FrameStore

	// Run plays the animation until the window closes or a fatal error occurs, then releases every resource.
	// It must be called from the goroutine that created the engine.
	//
	// Returns:
	//   - error: the fatal error that ended playback, or nil if the window was closed
	Run() error

	// Stop halts playback and rewinds to the first frame.
	Stop()

	// Pause halts playback on the current frame.
	Pause()

	// Resume continues paused playback.
	Resume()

	// Restart plays from the first frame.
	Restart()

	// Configure applies new pacing settings and restarts playback from the first frame.
	//
	// Parameters:
	//   - p: the playback settings
	//
	// Returns:
	//   - error: an error if p does not satisfy the configuration schema
	Configure(p config.Playback) error

	// Quit closes the window, ending Run. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine decodes the animated image at source and prepares it for playback.
// The window is sized to the image unless one is supplied with WithWindow. The GPU surface format follows the
// decoded pixel format, and all frames are uploaded before NewEngine returns.
//
// Parameters:
//   - source: path of an APNG or GIF file
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the ready engine
//   - error: an error wrapping common.ErrDecode or common.ErrGPUResource, or a configuration error
func NewEngine(source string, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		source:           source,
		title:            filepath.Base(source),
		pixelFormat:      common.PixelFormatRGBA8Unorm,
		presentMode:      renderer.PresentModeVSync,
		cfg:              config.Default(),
		level:            &slog.LevelVar{},
		profilingEnabled: true,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.configFile != "" {
		cfg, err := config.Load(e.configFile)
		if err != nil {
			return nil, err
		}
		e.cfg = cfg
	}
	e.level.Set(e.cfg.Log.SlogLevel())
	if e.logger == nil {
		e.logger = logger.New(os.Stderr, e.level)
	}
	mode, loop, fps, err := e.cfg.Playback.Settings()
	if err != nil {
		return nil, err
	}
	e.fixedFrameRate = fps

	raw, err := decoder.NewDecoder(
		decoder.WithPixelFormat(e.pixelFormat),
		decoder.WithLogger(e.component("decoder")),
	).DecodeFile(source)
	if err != nil {
		return nil, err
	}
	e.store, err = frame_store.NewFrameStore(raw)
	if err != nil {
		return nil, err
	}
	width, height := e.store.Bounds()
	e.logger.Info("decoded", slog.String("source", source), slog.Int("frames", e.store.Count()),
		slog.Int("width", width), slog.Int("height", height), slog.Duration("duration", e.store.TotalDuration()))

	ownsWindow := e.window == nil
	if ownsWindow {
		e.window = window.NewWindow(
			window.WithTitle(e.title),
			window.WithWidth(width),
			window.WithHeight(height),
		)
	}

	e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window,
		renderer.WithPresentMode(e.presentMode),
		renderer.WithForceSoftwareRenderer(e.software),
		renderer.WithSurfaceFormat(e.store.Format()),
		renderer.WithLogger(e.component("renderer")),
	)

	binderOptions := []resource_binder.ResourceBinderBuilderOption{resource_binder.WithLogger(e.component("resource_binder"))}
	if e.workers > 0 {
		binderOptions = append(binderOptions, resource_binder.WithWorkers(e.workers))
	}
	e.binder = resource_binder.NewResourceBinder(e.renderer, binderOptions...)
	if err := e.binder.Prepare(e.store, e.renderer.SurfaceFormat()); err != nil {
		e.renderer.Release()
		if ownsWindow {
			e.window.Close()
		}
		return nil, err
	}

	loopClock := clock.NewLoopClock(e.window.Post)
	e.scheduler = playback.NewScheduler(e.store,
		playback.WithMode(mode),
		playback.WithLoop(loop),
		playback.WithClock(loopClock),
		playback.WithOnComplete(e.complete),
		playback.WithLogger(e.component("playback")),
	)

	loopOptions := []render_loop.RenderLoopBuilderOption{
		render_loop.WithClock(loopClock),
		render_loop.WithLogger(e.component("render_loop")),
	}
	if e.profilingEnabled {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.component("profiler")))
		loopOptions = append(loopOptions, render_loop.WithStats(e.profiler))
	}
	e.loop = render_loop.NewRenderLoop(e.renderer, e.binder, e.scheduler, e.window, loopOptions...)

	e.wire()
	return e, nil
}

// wire installs the window callbacks and applies the scheduler's pacing to the window.
func (e *engine) wire() {
	e.window.SetRefreshCallback(e.refresh)
	e.window.SetKeyDownCallback(e.handleKey)
	e.window.SetResizeCallback(func(width, height int) {
		if e.renderer != nil {
			e.renderer.Resize(width, height)
		}
	})
	e.applyPacing()
}

func (e *engine) component(name string) *slog.Logger {
	return e.logger.With(slog.String("component", name))
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) FrameStore() frame_store.FrameStore {
	return e.store
}

func (e *engine) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if e.configFile != "" {
		w, err := e.watchConfig(ctx)
		if err != nil {
			e.logger.Warn("config watch disabled", slog.String("path", e.configFile), slog.Any("error", err))
		} else {
			defer w.Close()
		}
	}

	e.window.RequestRedraw()
	e.window.ProcessMessages()

	e.scheduler.Stop()
	e.release()
	return e.fatal()
}

// release frees GPU resources in dependency order, then the window.
func (e *engine) release() {
	if e.binder != nil {
		e.binder.Release()
	}
	if e.renderer != nil {
		e.renderer.Release()
	}
	if err := e.window.Close(); err != nil {
		e.logger.Debug("close window", slog.Any("error", err))
	}
}

func (e *engine) Stop() {
	e.window.Post(func() {
		e.scheduler.Stop()
		e.changed()
	})
}

func (e *engine) Pause() {
	e.window.Post(func() {
		e.scheduler.Pause()
		e.changed()
	})
}

func (e *engine) Resume() {
	e.window.Post(func() {
		e.scheduler.Resume()
		e.changed()
	})
}

func (e *engine) Restart() {
	e.window.Post(e.restart)
}

func (e *engine) Configure(p config.Playback) error {
	mode, loop, fps, err := validatePlayback(p)
	if err != nil {
		return err
	}
	e.window.Post(func() { e.configure(mode, loop, fps) })
	return nil
}

func (e *engine) Quit() {
	e.window.Post(e.window.RequestClose)
}

// refresh is the window's refresh callback. A fatal draw error ends playback.
func (e *engine) refresh() {
	if err := e.loop.Tick(); err != nil {
		e.fail(err)
	}
}

func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.logger.Error("playback failed", slog.Any("error", err))
	e.window.RequestClose()
}

func (e *engine) fatal() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// handleKey maps the player's key bindings:
// space toggles pause, R restarts, S stops, F switches between fixed and variable rate, L toggles looping.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeySpace:
		switch e.scheduler.State() {
		case playback.StatePlaying:
			e.scheduler.Pause()
		default:
			e.scheduler.Play()
		}
		e.changed()
	case common.KeyR:
		e.restart()
	case common.KeyS:
		e.scheduler.Stop()
		e.changed()
	case common.KeyF:
		mode := playback.ModeFixedRate
		if e.scheduler.Mode() == playback.ModeFixedRate {
			mode = playback.ModeVariableRate
		}
		e.configure(mode, e.scheduler.Loop(), e.fixedFrameRate)
	case common.KeyL:
		e.configure(e.scheduler.Mode(), !e.scheduler.Loop(), e.fixedFrameRate)
	}
}

func (e *engine) restart() {
	e.scheduler.Stop()
	e.scheduler.Play()
	e.changed()
}

func (e *engine) configure(mode playback.Mode, loop bool, fps int) {
	e.fixedFrameRate = fps
	e.scheduler.Reconfigure(mode, loop)
	e.applyPacing()
	e.changed()
}

// applyPacing drives fixed-rate playback from a steady refresh interval; variable-rate playback refreshes on demand.
func (e *engine) applyPacing() {
	if e.scheduler.Mode() == playback.ModeFixedRate {
		e.window.SetRefreshInterval(playback.FixedInterval(e.fixedFrameRate))
		return
	}
	e.window.SetRefreshInterval(0)
}

// changed redraws after a control change so a resumed variable-rate run re-arms its timer, and updates the title.
func (e *engine) changed() {
	s := e.scheduler.Snapshot()
	e.window.SetTitle(fmt.Sprintf("%s [%s %s loop=%t]", e.title, s.State, s.Mode, s.Loop))
	e.window.RequestRedraw()
}

func (e *engine) complete() {
	e.logger.Info("playback complete", slog.Any("mode", logger.Stringer{Stringer: e.scheduler.Mode()}))
	s := e.scheduler.Snapshot()
	e.window.SetTitle(fmt.Sprintf("%s [%s %s loop=%t, complete]", e.title, s.State, s.Mode, s.Loop))
}

// watchConfig reloads the configuration file on change and applies it on the loop goroutine.
func (e *engine) watchConfig(ctx context.Context) (*config.Watcher, error) {
	changes := make(chan config.Change, 1)
	w, err := config.NewWatcher(ctx, e.configFile, e.cfg, changes, -1, e.component("config"))
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-changes:
				if c.Err != nil {
					e.logger.Warn("config rejected", slog.String("path", e.configFile), slog.Any("error", c.Err))
					continue
				}
				e.window.Post(func() { e.applyConfig(c.Config) })
			}
		}
	}()
	return w, nil
}

func (e *engine) applyConfig(cfg config.Config) {
	mode, loop, fps, err := cfg.Playback.Settings()
	if err != nil {
		e.logger.Warn("config rejected", slog.Any("error", err))
		return
	}
	e.cfg = cfg
	e.level.Set(cfg.Log.SlogLevel())
	e.logger.Info("config applied", slog.String("mode", mode.String()), slog.Bool("loop", loop), slog.Int("fixed_frame_rate", fps))
	e.configure(mode, loop, fps)
}

func validatePlayback(p config.Playback) (playback.Mode, bool, int, error) {
	cfg := config.Default()
	cfg.Playback = p
	if _, err := config.Validate(config.Schema, cfg); err != nil {
		return 0, false, 0, err
	}
	return p.Settings()
}
