package frame_store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFrame(w, h int, d time.Duration) frame_store.RawFrame {
	return frame_store.RawFrame{
		Pixels:   make([]byte, w*h*4),
		Width:    w,
		Height:   h,
		Format:   common.PixelFormatRGBA8Unorm,
		Duration: d,
	}
}

func TestFrameStoreEmptyInput(t *testing.T) {
	_, err := frame_store.NewFrameStore(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecode))

	_, err = frame_store.NewFrameStore([]frame_store.RawFrame{})
	assert.ErrorIs(t, err, common.ErrDecode)
}

func TestFrameStoreFrameAtRange(t *testing.T) {
	for n := 1; n <= 6; n++ {
		raw := make([]frame_store.RawFrame, n)
		for i := range raw {
			raw[i] = rawFrame(2, 2, time.Duration(i+1)*10*time.Millisecond)
		}
		store, err := frame_store.NewFrameStore(raw)
		require.NoError(t, err)
		require.Equal(t, n, store.Count())

		for i := 0; i < n; i++ {
			f, err := store.FrameAt(i)
			require.NoError(t, err, "index %d of %d", i, n)
			assert.Equal(t, time.Duration(i+1)*10*time.Millisecond, f.Duration())

			d, err := store.DurationAt(i)
			require.NoError(t, err)
			assert.Equal(t, f.Duration(), d)
		}

		for _, i := range []int{-1, n, n + 1, -100} {
			_, err := store.FrameAt(i)
			assert.ErrorIs(t, err, common.ErrIndex, "index %d of %d", i, n)
			_, err = store.DurationAt(i)
			assert.ErrorIs(t, err, common.ErrIndex, "index %d of %d", i, n)
		}
	}
}

func TestFrameStoreFormatMismatch(t *testing.T) {
	second := rawFrame(2, 2, time.Millisecond)
	second.Format = common.PixelFormatBGRA8Unorm

	_, err := frame_store.NewFrameStore([]frame_store.RawFrame{rawFrame(2, 2, time.Millisecond), second})
	assert.ErrorIs(t, err, common.ErrDecode)
}

func TestFrameStoreRejectsInvalidFrames(t *testing.T) {
	undefined := rawFrame(2, 2, time.Millisecond)
	undefined.Format = common.PixelFormatUndefined

	short := rawFrame(2, 2, time.Millisecond)
	short.Pixels = short.Pixels[:7]

	cases := map[string][]frame_store.RawFrame{
		"undefined format":      {undefined},
		"zero size":             {rawFrame(0, 0, time.Millisecond)},
		"mismatched dimensions": {rawFrame(2, 2, time.Millisecond), rawFrame(3, 2, time.Millisecond)},
		"short pixel buffer":    {rawFrame(2, 2, time.Millisecond), short},
		"zero duration":         {rawFrame(2, 2, 0)},
		"negative duration":     {rawFrame(2, 2, time.Millisecond), rawFrame(2, 2, -time.Millisecond)},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := frame_store.NewFrameStore(raw)
			assert.ErrorIs(t, err, common.ErrDecode)
		})
	}
}

func TestFrameStoreAccessors(t *testing.T) {
	raw := []frame_store.RawFrame{
		rawFrame(4, 3, 100*time.Millisecond),
		rawFrame(4, 3, 200*time.Millisecond),
		rawFrame(4, 3, 50*time.Millisecond),
	}
	store, err := frame_store.NewFrameStore(raw)
	require.NoError(t, err)

	w, h := store.Bounds()
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)
	assert.Equal(t, common.PixelFormatRGBA8Unorm, store.Format())
	assert.Equal(t, 350*time.Millisecond, store.TotalDuration())

	f, err := store.FrameAt(1)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width())
	assert.Equal(t, 3, f.Height())
	assert.Len(t, f.Pixels(), 4*3*4)
}

func TestFrameStoreIgnoresCallerMutation(t *testing.T) {
	raw := []frame_store.RawFrame{
		rawFrame(1, 1, 100*time.Millisecond),
		rawFrame(1, 1, 200*time.Millisecond),
	}
	store, err := frame_store.NewFrameStore(raw)
	require.NoError(t, err)

	raw[0].Duration = time.Hour
	raw[0].Pixels[0] = 99
	raw[1] = rawFrame(1, 1, time.Second)

	assert.Equal(t, 2, store.Count())
	d, err := store.DurationAt(0)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, d)

	f, err := store.FrameAt(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.Pixels())
}
