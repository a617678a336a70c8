// package decoder turns animated image bytes into the frame list consumed by the frame store.
// APNG and animated GIF are supported; every output frame is a fully composited canvas.
package decoder

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
)

// DefaultDelay is the display duration used when a source frame has no delay or a zero delay.
const DefaultDelay = 100 * time.Millisecond

// decoder is the implementation of the Decoder interface.
type decoder struct {
	format       common.PixelFormat
	defaultDelay time.Duration
	logger       *slog.Logger
}

// Decoder decodes an animated image into composited frames with display durations.
type Decoder interface {
	// Decode reads an APNG or GIF stream and returns its frames in presentation order.
	//
	// Parameters:
	//   - r: the encoded image stream
	//
	// Returns:
	//   - []frame_store.RawFrame: the composited frames
	//   - error: an error wrapping common.ErrDecode if the stream is empty, unrecognized or malformed
	Decode(r io.Reader) ([]frame_store.RawFrame, error)

	// DecodeFile opens the file at path and decodes it.
	//
	// Parameters:
	//   - path: the image file path
	//
	// Returns:
	//   - []frame_store.RawFrame: the composited frames
	//   - error: the open error, or an error wrapping common.ErrDecode
	DecodeFile(path string) ([]frame_store.RawFrame, error)
}

var _ Decoder = &decoder{}

// NewDecoder creates a Decoder. Frames are produced in PixelFormatRGBA8Unorm unless WithPixelFormat says otherwise.
//
// Parameters:
//   - options: optional configuration functions
//
// Returns:
//   - Decoder: the decoder
func NewDecoder(options ...DecoderBuilderOption) Decoder {
	d := &decoder{
		format:       common.PixelFormatRGBA8Unorm,
		defaultDelay: DefaultDelay,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

const (
	pngMagic = "\x89PNG\r\n\x1a\n"
	gifMagic = "GIF8?a"
)

func (d *decoder) Decode(r io.Reader) ([]frame_store.RawFrame, error) {
	br := bufio.NewReader(r)
	var (
		frames []frame_store.RawFrame
		err    error
	)
	switch {
	case hasMagic(pngMagic, br):
		frames, err = d.decodeAPNG(br)
	case hasMagic(gifMagic, br):
		frames, err = d.decodeGIF(br)
	default:
		return nil, fmt.Errorf("decoder: unrecognized image data: %w", common.ErrDecode)
	}
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("decoder: no frames: %w", common.ErrDecode)
	}
	d.logger.Debug("decoded animation", slog.Int("frames", len(frames)), slog.Int("width", frames[0].Width), slog.Int("height", frames[0].Height), slog.String("format", d.format.String()))
	return frames, nil
}

func (d *decoder) DecodeFile(path string) ([]frame_store.RawFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	defer f.Close()
	return d.Decode(f)
}

// hasMagic returns whether r starts with the provided magic bytes. A '?' in magic matches any byte.
func hasMagic(magic string, r *bufio.Reader) bool {
	b, err := r.Peek(len(magic))
	if err != nil || len(b) != len(magic) {
		return false
	}
	for i, c := range b {
		if magic[i] != c && magic[i] != '?' {
			return false
		}
	}
	return true
}

// delayOrDefault returns d, or the decoder's default delay when d is not positive.
func (d *decoder) delayOrDefault(delay time.Duration) time.Duration {
	if delay <= 0 {
		return d.defaultDelay
	}
	return delay
}
