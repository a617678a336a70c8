package decoder

import (
	"image"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"golang.org/x/image/draw"
)

// canvas is the compositing surface shared by the APNG and GIF decoders.
type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int) *canvas {
	return &canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// region clips r to the canvas bounds.
func (c *canvas) region(r image.Rectangle) image.Rectangle {
	return r.Intersect(c.img.Bounds())
}

// save copies the pixels under r so they can be restored after the frame is shown.
func (c *canvas) save(r image.Rectangle) *image.RGBA {
	r = c.region(r)
	saved := image.NewRGBA(r)
	draw.Copy(saved, r.Min, c.img, r, draw.Src, nil)
	return saved
}

// restore writes a region previously captured by save back onto the canvas.
func (c *canvas) restore(saved *image.RGBA) {
	draw.Copy(c.img, saved.Rect.Min, saved, saved.Rect, draw.Src, nil)
}

// clear makes r fully transparent.
func (c *canvas) clear(r image.Rectangle) {
	r = c.region(r)
	draw.Draw(c.img, r, image.Transparent, image.Point{}, draw.Src)
}

// compose draws src with its bounds origin at dp using op.
func (c *canvas) compose(src image.Image, dp image.Point, op draw.Op) {
	sr := src.Bounds()
	dr := c.region(sr.Sub(sr.Min).Add(dp))
	if dr.Empty() {
		return
	}
	draw.Draw(c.img, dr, src, sr.Min.Add(dr.Min.Sub(dp)), op)
}

// snapshot copies the canvas into a tightly packed raw frame in the decoder's output format.
func (d *decoder) snapshot(c *canvas, delay time.Duration) frame_store.RawFrame {
	b := c.img.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		src := c.img.Pix[y*c.img.Stride : y*c.img.Stride+w*4]
		copy(pixels[y*w*4:], src)
	}
	if d.format.IsBGRA() {
		for i := 0; i < len(pixels); i += 4 {
			pixels[i], pixels[i+2] = pixels[i+2], pixels[i]
		}
	}
	return frame_store.RawFrame{
		Pixels:   pixels,
		Width:    w,
		Height:   h,
		Format:   d.format,
		Duration: d.delayOrDefault(delay),
	}
}
