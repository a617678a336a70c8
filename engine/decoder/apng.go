package decoder

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/kettek/apng"
	"golang.org/x/image/draw"
)

// fcTL dispose_op and blend_op values.
const (
	apngDisposeNone       = 0
	apngDisposeBackground = 1
	apngDisposePrevious   = 2

	apngBlendSource = 0
	apngBlendOver   = 1
)

func (d *decoder) decodeAPNG(r io.Reader) ([]frame_store.RawFrame, error) {
	a, err := apng.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoder: apng: %v: %w", err, common.ErrDecode)
	}
	if len(a.Frames) == 0 || a.Frames[0].Image == nil {
		return nil, fmt.Errorf("decoder: apng: no frames: %w", common.ErrDecode)
	}

	// The first frame is always the default image and defines the canvas size.
	size := a.Frames[0].Image.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("decoder: apng: empty canvas %v: %w", size, common.ErrDecode)
	}

	frames := a.Frames
	if len(frames) > 1 && frames[0].IsDefault {
		frames = frames[1:]
	}

	c := newCanvas(size.X, size.Y)
	out := make([]frame_store.RawFrame, 0, len(frames))
	for i, f := range frames {
		if f.Image == nil {
			return nil, fmt.Errorf("decoder: apng: frame %d has no image: %w", i, common.ErrDecode)
		}
		origin := image.Pt(int(f.XOffset), int(f.YOffset))
		area := f.Image.Bounds()
		area = area.Sub(area.Min).Add(origin)

		dispose := f.DisposeOp
		if i == 0 && dispose == apngDisposePrevious {
			dispose = apngDisposeBackground
		}

		var saved *image.RGBA
		if dispose == apngDisposePrevious {
			saved = c.save(area)
		}

		op := draw.Over
		if f.BlendOp == apngBlendSource {
			op = draw.Src
		}
		c.compose(f.Image, origin, op)
		out = append(out, d.snapshot(c, apngDelay(f.DelayNumerator, f.DelayDenominator)))

		switch dispose {
		case apngDisposeBackground:
			c.clear(area)
		case apngDisposePrevious:
			c.restore(saved)
		}
	}
	return out, nil
}

// apngDelay converts an fcTL delay fraction to a duration. A zero denominator means hundredths of a second.
func apngDelay(num, den uint16) time.Duration {
	if den == 0 {
		den = 100
	}
	return time.Duration(num) * time.Second / time.Duration(den)
}
