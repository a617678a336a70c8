package render_loop_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/clock"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/Carmen-Shannon/oxy-apng/engine/playback"
	"github.com/Carmen-Shannon/oxy-apng/engine/render_loop"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records the frame lifecycle calls in order.
type fakeRenderer struct {
	ops      []string
	drawn    []string
	vertices []int
	beginErr error
}

func (f *fakeRenderer) BeginFrame() error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.ops = append(f.ops, "begin")
	return nil
}

func (f *fakeRenderer) DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	if p == nil || p.Pipeline() == nil {
		return fmt.Errorf("draw call: %w", common.ErrPipelineMissing)
	}
	f.ops = append(f.ops, "draw")
	f.drawn = append(f.drawn, bindGroups[0].Label())
	f.vertices = append(f.vertices, mesh.VertexCount())
	return nil
}

func (f *fakeRenderer) EndFrame() error {
	f.ops = append(f.ops, "end")
	return nil
}

func (f *fakeRenderer) Present()  { f.ops = append(f.ops, "present") }
func (f *fakeRenderer) WaitIdle() { f.ops = append(f.ops, "wait") }

type fakeFrames struct {
	textures []bind_group_provider.BindGroupProvider
	mesh     bind_group_provider.BindGroupProvider
	pipeline pipeline.Pipeline
}

func newFakeFrames(n int) *fakeFrames {
	f := &fakeFrames{
		mesh:     bind_group_provider.NewBindGroupProvider("quad", bind_group_provider.WithVertexCount(common.QuadVertexCount)),
		pipeline: pipeline.NewPipeline("quad"),
	}
	f.pipeline.SetRenderPipeline(&wgpu.RenderPipeline{})
	for i := range n {
		f.textures = append(f.textures, bind_group_provider.NewBindGroupProvider(fmt.Sprintf("frame %d", i)))
	}
	return f
}

func (f *fakeFrames) TextureAt(i int) (bind_group_provider.BindGroupProvider, error) {
	if i < 0 || i >= len(f.textures) {
		return nil, common.ErrIndex
	}
	return f.textures[i], nil
}

func (f *fakeFrames) Mesh() bind_group_provider.BindGroupProvider { return f.mesh }
func (f *fakeFrames) Pipeline() pipeline.Pipeline                 { return f.pipeline }

type fakeHost struct{ redraws int }

func (h *fakeHost) RequestRedraw() { h.redraws++ }

type fakeStats struct{ presented, skipped int }

func (s *fakeStats) FramePresented() { s.presented++ }
func (s *fakeStats) FrameSkipped()   { s.skipped++ }

func newStore(t *testing.T, durations ...time.Duration) frame_store.FrameStore {
	t.Helper()
	raw := make([]frame_store.RawFrame, len(durations))
	for i, d := range durations {
		raw[i] = frame_store.RawFrame{Pixels: make([]byte, 4), Width: 1, Height: 1, Format: common.PixelFormatRGBA8Unorm, Duration: d}
	}
	store, err := frame_store.NewFrameStore(raw)
	require.NoError(t, err)
	return store
}

func TestTickDrawsOneQuadThenWaits(t *testing.T) {
	r := &fakeRenderer{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond, 100*time.Millisecond), playback.WithClock(m))
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, &fakeHost{})

	require.NoError(t, l.Tick())

	if diff := cmp.Diff([]string{"begin", "draw", "end", "present", "wait"}, r.ops); diff != "" {
		t.Errorf("frame lifecycle mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{4}, r.vertices)
}

func TestTickVariableRateFollowsDurations(t *testing.T) {
	r := &fakeRenderer{}
	host := &fakeHost{}
	stats := &fakeStats{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond, 200*time.Millisecond, 50*time.Millisecond), playback.WithClock(m))
	l := render_loop.NewRenderLoop(r, newFakeFrames(3), s, host, render_loop.WithStats(stats))

	// drive the loop the way the host does: every requested redraw results in one tick
	tickOnRedraw := func() {
		for host.redraws > 0 {
			host.redraws--
			require.NoError(t, l.Tick())
		}
	}

	require.NoError(t, l.Tick())
	assert.True(t, s.Armed())

	m.Advance(99 * time.Millisecond)
	tickOnRedraw()
	assert.Equal(t, []string{"frame 0"}, r.drawn)

	m.Advance(time.Millisecond)
	tickOnRedraw()
	assert.Equal(t, []string{"frame 0", "frame 1"}, r.drawn)

	m.Advance(200 * time.Millisecond)
	tickOnRedraw()
	m.Advance(50 * time.Millisecond)
	tickOnRedraw()

	assert.Equal(t, []string{"frame 0", "frame 1", "frame 2", "frame 0"}, r.drawn)
	assert.Equal(t, 4, stats.presented)
}

func TestTickHostRedrawDoesNotRestartTimer(t *testing.T) {
	r := &fakeRenderer{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond, 100*time.Millisecond), playback.WithClock(m))
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, &fakeHost{})

	require.NoError(t, l.Tick())
	m.Advance(60 * time.Millisecond)
	// an expose event redraws the same frame
	require.NoError(t, l.Tick())
	m.Advance(40 * time.Millisecond)

	assert.Equal(t, 1, s.CurrentIndex())
}

func TestTickFixedRateAdvancesEveryTick(t *testing.T) {
	r := &fakeRenderer{}
	// heterogeneous durations do not affect fixed-rate pacing
	s := playback.NewScheduler(
		newStore(t, 10*time.Millisecond, time.Second, 30*time.Millisecond),
		playback.WithMode(playback.ModeFixedRate),
	)
	l := render_loop.NewRenderLoop(r, newFakeFrames(3), s, &fakeHost{})

	for range 5 {
		require.NoError(t, l.Tick())
	}

	assert.Equal(t, []string{"frame 0", "frame 1", "frame 2", "frame 0", "frame 1"}, r.drawn)
	assert.False(t, s.Armed())
}

func TestTickTransientFailureSkips(t *testing.T) {
	r := &fakeRenderer{beginErr: fmt.Errorf("begin frame: %w: %w", common.ErrTransientFrame, errors.New("surface outdated"))}
	host := &fakeHost{}
	stats := &fakeStats{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond, 100*time.Millisecond), playback.WithClock(m))
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, host, render_loop.WithStats(stats), render_loop.WithClock(m))

	require.NoError(t, l.Tick())

	assert.Empty(t, r.ops)
	assert.Equal(t, 0, s.CurrentIndex())
	assert.False(t, s.Armed())
	assert.Equal(t, 1, stats.skipped)
	assert.Zero(t, stats.presented)
	// the redraw waits for the retry delay instead of firing inline
	assert.Zero(t, host.redraws)
	assert.Equal(t, 1, m.Pending())

	m.Advance(render_loop.DefaultRetryDelay)
	assert.Equal(t, 1, host.redraws)

	r.beginErr = nil
	require.NoError(t, l.Tick())
	assert.Equal(t, []string{"frame 0"}, r.drawn)
}

func TestTickTransientFailureRetriesAtMostOncePerDelay(t *testing.T) {
	r := &fakeRenderer{beginErr: common.ErrTransientFrame}
	host := &fakeHost{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond, 100*time.Millisecond), playback.WithClock(m))
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, host,
		render_loop.WithClock(m),
		render_loop.WithRetryDelay(10*time.Millisecond),
	)

	// a surface that stays unavailable must not turn into a redraw loop
	for range 3 {
		require.NoError(t, l.Tick())
	}
	assert.Equal(t, 1, m.Pending())
	assert.Zero(t, host.redraws)

	m.Advance(9 * time.Millisecond)
	assert.Zero(t, host.redraws)
	m.Advance(time.Millisecond)
	assert.Equal(t, 1, host.redraws)

	// every retry that fails again schedules exactly one more
	host.redraws--
	require.NoError(t, l.Tick())
	assert.Equal(t, 1, m.Pending())
	m.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, host.redraws)
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestTickTransientFailureRetryDroppedAfterStop(t *testing.T) {
	r := &fakeRenderer{beginErr: common.ErrTransientFrame}
	host := &fakeHost{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond), playback.WithClock(m))
	l := render_loop.NewRenderLoop(r, newFakeFrames(1), s, host, render_loop.WithClock(m))

	require.NoError(t, l.Tick())
	s.Stop()
	m.Advance(render_loop.DefaultRetryDelay)

	assert.Zero(t, host.redraws)
}

func TestTickTransientFailureWithoutClockWaitsForHost(t *testing.T) {
	r := &fakeRenderer{beginErr: common.ErrTransientFrame}
	host := &fakeHost{}
	s := playback.NewScheduler(newStore(t, 100*time.Millisecond), playback.WithClock(clock.NewManual(time.Unix(0, 0))))
	l := render_loop.NewRenderLoop(r, newFakeFrames(1), s, host)

	require.NoError(t, l.Tick())
	assert.Zero(t, host.redraws)
}

func TestTickTransientFailureFixedRateDoesNotAdvance(t *testing.T) {
	r := &fakeRenderer{beginErr: common.ErrTransientFrame}
	host := &fakeHost{}
	s := playback.NewScheduler(newStore(t, time.Second, time.Second), playback.WithMode(playback.ModeFixedRate))
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, host)

	require.NoError(t, l.Tick())

	assert.Equal(t, 0, s.CurrentIndex())
	assert.Zero(t, host.redraws)
}

func TestTickMissingPipelineIsFatal(t *testing.T) {
	r := &fakeRenderer{}
	frames := newFakeFrames(1)
	frames.pipeline = pipeline.NewPipeline("quad")
	s := playback.NewScheduler(newStore(t, time.Second), playback.WithMode(playback.ModeFixedRate))
	l := render_loop.NewRenderLoop(r, frames, s, &fakeHost{})

	err := l.Tick()

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPipelineMissing)
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestTickIndexOutOfRangeIsFatal(t *testing.T) {
	s := playback.NewScheduler(newStore(t, time.Second, time.Second), playback.WithMode(playback.ModeFixedRate))
	s.Advance()
	l := render_loop.NewRenderLoop(&fakeRenderer{}, newFakeFrames(1), s, &fakeHost{})

	assert.ErrorIs(t, l.Tick(), common.ErrIndex)
}

func TestTickNotPlaying(t *testing.T) {
	r := &fakeRenderer{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, time.Second, time.Second), playback.WithClock(m), playback.WithAutoStart(false))
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, &fakeHost{})

	require.NoError(t, l.Tick())
	assert.Empty(t, r.ops)

	s.Play()
	s.Stop()
	require.NoError(t, l.Tick())
	assert.Empty(t, r.ops)
}

func TestTickPausedRedrawsWithoutAdvancing(t *testing.T) {
	r := &fakeRenderer{}
	m := clock.NewManual(time.Unix(0, 0))
	s := playback.NewScheduler(newStore(t, time.Second, time.Second), playback.WithClock(m))
	s.Advance()
	s.Pause()
	l := render_loop.NewRenderLoop(r, newFakeFrames(2), s, &fakeHost{})

	require.NoError(t, l.Tick())
	m.Advance(5 * time.Second)

	assert.Equal(t, []string{"frame 1"}, r.drawn)
	assert.Equal(t, 1, s.CurrentIndex())
	assert.False(t, s.Armed())
}
