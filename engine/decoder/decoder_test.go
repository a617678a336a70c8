package decoder_test

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/decoder"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/google/go-cmp/cmp"
	"github.com/setanarut/apng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	transparent = color.RGBA{}
	red         = color.RGBA{R: 0xff, A: 0xff}
	green       = color.RGBA{G: 0xff, A: 0xff}
	blue        = color.RGBA{B: 0xff, A: 0xff}
	palette     = color.Palette{transparent, red, green, blue}
)

func paletted(r image.Rectangle, c color.Color) *image.Paletted {
	img := image.NewPaletted(r, palette)
	idx := uint8(palette.Index(c))
	for i := range img.Pix {
		img.Pix[i] = idx
	}
	return img
}

func encodeGIF(t *testing.T, g *gif.GIF) []byte {
	t.Helper()
	g.Config = image.Config{ColorModel: palette, Width: 2, Height: 2}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

// pixelAt reads the RGBA pixel at (x, y) of a tightly packed RGBA frame.
func pixelAt(f frame_store.RawFrame, x, y int) color.RGBA {
	i := (y*f.Width + x) * 4
	return color.RGBA{R: f.Pixels[i], G: f.Pixels[i+1], B: f.Pixels[i+2], A: f.Pixels[i+3]}
}

func TestDecodeGIFDelays(t *testing.T) {
	data := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			paletted(image.Rect(0, 0, 2, 2), red),
			paletted(image.Rect(0, 0, 2, 2), green),
			paletted(image.Rect(0, 0, 2, 2), blue),
		},
		Delay: []int{0, 5, 20},
	})

	frames, err := decoder.NewDecoder().Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	var got []time.Duration
	for _, f := range frames {
		got = append(got, f.Duration)
		assert.Equal(t, 2, f.Width)
		assert.Equal(t, 2, f.Height)
		assert.Equal(t, common.PixelFormatRGBA8Unorm, f.Format)
		assert.Len(t, f.Pixels, 2*2*4)
	}
	if diff := cmp.Diff([]time.Duration{decoder.DefaultDelay, 50 * time.Millisecond, 200 * time.Millisecond}, got); diff != "" {
		t.Errorf("durations (-want +got):\n%s", diff)
	}
	assert.Equal(t, red, pixelAt(frames[0], 1, 1))
	assert.Equal(t, blue, pixelAt(frames[2], 0, 0))
}

func TestDecodeGIFDisposalRestoresBackground(t *testing.T) {
	data := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			paletted(image.Rect(0, 0, 2, 2), red),
			paletted(image.Rect(0, 0, 1, 1), blue),
		},
		Delay:    []int{10, 10},
		Disposal: []byte{gif.DisposalBackground, gif.DisposalNone},
	})

	frames, err := decoder.NewDecoder().Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, red, pixelAt(frames[0], 1, 1))
	assert.Equal(t, blue, pixelAt(frames[1], 0, 0))
	assert.Equal(t, transparent, pixelAt(frames[1], 1, 1))
}

func TestDecodeGIFDisposalRestoresPrevious(t *testing.T) {
	data := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			paletted(image.Rect(0, 0, 2, 2), red),
			paletted(image.Rect(0, 0, 1, 1), blue),
			paletted(image.Rect(1, 1, 2, 2), green),
		},
		Delay:    []int{10, 10, 10},
		Disposal: []byte{gif.DisposalNone, gif.DisposalPrevious, gif.DisposalNone},
	})

	frames, err := decoder.NewDecoder().Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, blue, pixelAt(frames[1], 0, 0))
	assert.Equal(t, red, pixelAt(frames[2], 0, 0))
	assert.Equal(t, green, pixelAt(frames[2], 1, 1))
	assert.Equal(t, red, pixelAt(frames[2], 1, 0))
}

func TestDecodeBGRASwizzle(t *testing.T) {
	data := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{paletted(image.Rect(0, 0, 2, 2), red)},
		Delay: []int{10},
	})

	frames, err := decoder.NewDecoder(decoder.WithPixelFormat(common.PixelFormatBGRA8Unorm)).Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, common.PixelFormatBGRA8Unorm, frames[0].Format)
	assert.Equal(t, []byte{0, 0, 0xff, 0xff}, frames[0].Pixels[:4])
}

func TestDecodeDefaultDelayOption(t *testing.T) {
	data := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{paletted(image.Rect(0, 0, 2, 2), red)},
		Delay: []int{0},
	})

	frames, err := decoder.NewDecoder(decoder.WithDefaultDelay(40 * time.Millisecond)).Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, frames[0].Duration)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"unrecognized":  "this is not an image",
		"truncated gif": "GIF89a\x02\x00",
		"truncated png": "\x89PNG\r\n\x1a\n\x00\x00",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decoder.NewDecoder().Decode(strings.NewReader(data))
			assert.ErrorIs(t, err, common.ErrDecode)
		})
	}
}

func TestDecodeAPNGFixture(t *testing.T) {
	var images []image.Image
	for _, c := range []color.RGBA{red, green, blue, red} {
		img := image.NewRGBA(image.Rect(0, 0, 3, 2))
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				img.SetRGBA(x, y, c)
			}
		}
		images = append(images, img)
	}
	path := filepath.Join(t.TempDir(), "fixture.png")
	apng.Save(path, images, 6)

	frames, err := decoder.NewDecoder().DecodeFile(path)
	require.NoError(t, err)
	require.Len(t, frames, len(images))

	for i, f := range frames {
		assert.Equal(t, 3, f.Width, "frame %d", i)
		assert.Equal(t, 2, f.Height, "frame %d", i)
		assert.Positive(t, f.Duration, "frame %d", i)
		assert.Equal(t, frames[0].Duration, f.Duration, "frame %d", i)
	}
	assert.Equal(t, green, pixelAt(frames[1], 2, 1))
	assert.Equal(t, blue, pixelAt(frames[2], 0, 0))

	store, err := frame_store.NewFrameStore(frames)
	require.NoError(t, err)
	assert.Equal(t, len(images), store.Count())
}

func TestDecodeFileMissing(t *testing.T) {
	_, err := decoder.NewDecoder().DecodeFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
