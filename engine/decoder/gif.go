package decoder

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"golang.org/x/image/draw"
)

func (d *decoder) decodeGIF(r io.Reader) ([]frame_store.RawFrame, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoder: gif: %v: %w", err, common.ErrDecode)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("decoder: gif: no frames: %w", common.ErrDecode)
	}
	if len(g.Image) != len(g.Delay) && g.Delay != nil {
		return nil, fmt.Errorf("decoder: gif: mismatched image count and delay count: %d != %d: %w", len(g.Image), len(g.Delay), common.ErrDecode)
	}
	if len(g.Image) != len(g.Disposal) && g.Disposal != nil {
		return nil, fmt.Errorf("decoder: gif: mismatched image count and disposal count: %d != %d: %w", len(g.Image), len(g.Disposal), common.ErrDecode)
	}

	const (
		restoreBackground = 2
		restorePrevious   = 3
	)

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		for _, frame := range g.Image {
			bounds = bounds.Union(frame.Bounds())
		}
	}
	c := newCanvas(bounds.Dx(), bounds.Dy())

	out := make([]frame_store.RawFrame, 0, len(g.Image))
	for f, frame := range g.Image {
		var disposal byte
		if g.Disposal != nil {
			disposal = g.Disposal[f]
		}
		var saved *image.RGBA
		if disposal == restorePrevious {
			saved = c.save(frame.Bounds())
		}

		c.compose(frame, frame.Bounds().Min, draw.Over)

		var delay time.Duration
		if g.Delay != nil {
			delay = 10 * time.Duration(g.Delay[f]) * time.Millisecond
		}
		out = append(out, d.snapshot(c, delay))

		switch disposal {
		case restoreBackground:
			c.clear(frame.Bounds())
		case restorePrevious:
			c.restore(saved)
		}
	}
	return out, nil
}
