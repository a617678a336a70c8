package engine

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
	"github.com/Carmen-Shannon/oxy-apng/engine/config"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/Carmen-Shannon/oxy-apng/engine/playback"
	"github.com/Carmen-Shannon/oxy-apng/engine/window"
)

// fakeWindow runs posted tasks immediately and records the calls the engine makes.
type fakeWindow struct {
	refresh  func()
	keyDown  func(uint32)
	resize   func(int, int)
	interval time.Duration
	title    string
	redraws  int
	closing  bool
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetRefreshCallback(cb func())                 { w.refresh = cb }
func (w *fakeWindow) SetRefreshInterval(d time.Duration)           { w.interval = d }
func (w *fakeWindow) RequestRedraw()                               { w.redraws++ }
func (w *fakeWindow) Post(f func())                                { f() }
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.resize = cb }
func (w *fakeWindow) SetKeyDownCallback(cb func(keyCode uint32))   { w.keyDown = cb }
func (w *fakeWindow) SetTitle(title string)                        { w.title = title }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor   { return nil }
func (w *fakeWindow) IsRunning() bool                              { return !w.closing }
func (w *fakeWindow) RequestClose()                                { w.closing = true }
func (w *fakeWindow) Close() error                                 { return nil }
func (w *fakeWindow) ProcessMessages()                             {}
func (w *fakeWindow) Width() int                                   { return 1 }
func (w *fakeWindow) Height() int                                  { return 1 }

type fakeLoop struct {
	ticks int
	err   error
}

func (l *fakeLoop) Tick() error {
	l.ticks++
	return l.err
}

func newTestEngine(t *testing.T, frames int) (*engine, *fakeWindow, *fakeLoop) {
	t.Helper()
	raw := make([]frame_store.RawFrame, frames)
	for i := range raw {
		raw[i] = frame_store.RawFrame{
			Pixels:   make([]byte, 4),
			Width:    1,
			Height:   1,
			Format:   common.PixelFormatRGBA8Unorm,
			Duration: 100 * time.Millisecond,
		}
	}
	store, err := frame_store.NewFrameStore(raw)
	require.NoError(t, err)

	w := &fakeWindow{}
	l := &fakeLoop{}
	e := &engine{
		title:          "test.png",
		cfg:            config.Default(),
		level:          &slog.LevelVar{},
		logger:         slog.New(slog.DiscardHandler),
		window:         w,
		store:          store,
		loop:           l,
		fixedFrameRate: 30,
	}
	e.scheduler = playback.NewScheduler(store,
		playback.WithClock(clock.NewManual(time.Unix(0, 0))),
		playback.WithOnComplete(e.complete),
	)
	e.wire()
	return e, w, l
}

func TestWireInstallsCallbacks(t *testing.T) {
	_, w, l := newTestEngine(t, 3)
	require.NotNil(t, w.refresh)
	require.NotNil(t, w.keyDown)
	require.NotNil(t, w.resize)
	assert.Equal(t, time.Duration(0), w.interval)

	w.refresh()
	assert.Equal(t, 1, l.ticks)
	w.resize(10, 10)
}

func TestKeyBindings(t *testing.T) {
	e, w, _ := newTestEngine(t, 3)
	e.scheduler.Advance()

	w.keyDown(common.KeySpace)
	assert.Equal(t, playback.StatePaused, e.scheduler.State())
	assert.Equal(t, 1, e.scheduler.CurrentIndex())
	assert.Equal(t, "test.png [paused variable loop=true]", w.title)

	w.keyDown(common.KeySpace)
	assert.Equal(t, playback.StatePlaying, e.scheduler.State())
	assert.Equal(t, 1, e.scheduler.CurrentIndex())

	w.keyDown(common.KeyS)
	assert.Equal(t, playback.StateStopped, e.scheduler.State())
	w.keyDown(common.KeySpace)
	assert.Equal(t, playback.StatePlaying, e.scheduler.State())

	e.scheduler.Advance()
	w.keyDown(common.KeyR)
	assert.Equal(t, 0, e.scheduler.CurrentIndex())
	assert.True(t, e.scheduler.IsRunning())

	w.keyDown(common.KeyF)
	assert.Equal(t, playback.ModeFixedRate, e.scheduler.Mode())
	assert.Equal(t, time.Second/30, w.interval)
	w.keyDown(common.KeyF)
	assert.Equal(t, playback.ModeVariableRate, e.scheduler.Mode())
	assert.Equal(t, time.Duration(0), w.interval)

	w.keyDown(common.KeyL)
	assert.False(t, e.scheduler.Loop())
	assert.Equal(t, "test.png [playing variable loop=false]", w.title)

	redraws := w.redraws
	w.keyDown('Q')
	assert.Equal(t, redraws, w.redraws, "unbound keys do nothing")
}

func TestControlMethods(t *testing.T) {
	e, w, _ := newTestEngine(t, 4)
	e.scheduler.Advance()
	e.scheduler.Advance()

	e.Pause()
	assert.Equal(t, playback.StatePaused, e.scheduler.State())
	e.Resume()
	assert.Equal(t, playback.StatePlaying, e.scheduler.State())
	assert.Equal(t, 2, e.scheduler.CurrentIndex())

	e.Restart()
	assert.Equal(t, 0, e.scheduler.CurrentIndex())
	e.Stop()
	assert.Equal(t, playback.StateStopped, e.scheduler.State())

	e.Quit()
	assert.True(t, w.closing)
}

func TestConfigure(t *testing.T) {
	e, w, _ := newTestEngine(t, 3)

	err := e.Configure(config.Playback{Mode: "fixed", Loop: false, FixedFrameRate: 0})
	assert.Error(t, err)
	assert.Equal(t, playback.ModeVariableRate, e.scheduler.Mode())

	err = e.Configure(config.Playback{Mode: "fixed", Loop: false, FixedFrameRate: 12})
	require.NoError(t, err)
	assert.Equal(t, playback.ModeFixedRate, e.scheduler.Mode())
	assert.False(t, e.scheduler.Loop())
	assert.Equal(t, time.Second/12, w.interval)

	for range 5 {
		e.scheduler.Advance()
	}
	assert.Equal(t, 2, e.scheduler.CurrentIndex())
	assert.Equal(t, "test.png [playing fixed loop=false, complete]", w.title)
}

func TestApplyConfig(t *testing.T) {
	e, w, _ := newTestEngine(t, 3)
	cfg := config.Default()
	cfg.Playback.Mode = "fixed"
	cfg.Playback.FixedFrameRate = 24
	cfg.Log.Level = "debug"

	e.applyConfig(cfg)
	assert.Equal(t, slog.LevelDebug, e.level.Level())
	assert.Equal(t, playback.ModeFixedRate, e.scheduler.Mode())
	assert.Equal(t, time.Second/24, w.interval)
	assert.Equal(t, cfg, e.cfg)

	bad := cfg
	bad.Playback.Mode = "fps"
	e.applyConfig(bad)
	assert.Equal(t, cfg, e.cfg)
}

func TestFatalTickClosesWindow(t *testing.T) {
	e, w, l := newTestEngine(t, 2)
	l.err = common.ErrPipelineMissing

	w.refresh()
	assert.True(t, w.closing)
	assert.True(t, errors.Is(e.fatal(), common.ErrPipelineMissing))

	l.err = common.ErrIndex
	w.refresh()
	assert.True(t, errors.Is(e.fatal(), common.ErrPipelineMissing), "first fatal error is kept")
}
