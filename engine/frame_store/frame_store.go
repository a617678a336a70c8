package frame_store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
)

// RawFrame is a single decoded frame as handed over by a decoder, before validation.
type RawFrame struct {
	// Pixels is the decoded pixel buffer, row-major, tightly packed, laid out according to Format.
	Pixels []byte
	// Width is the frame width in pixels.
	Width int
	// Height is the frame height in pixels.
	Height int
	// Format is the layout of Pixels.
	Format common.PixelFormat
	// Duration is how long the frame stays on screen in variable-rate playback.
	Duration time.Duration
}

// Frame is an immutable, validated frame held by a FrameStore.
// Its position within the store is its identity during a playback session.
type Frame struct {
	pixels   []byte
	width    int
	height   int
	format   common.PixelFormat
	duration time.Duration
}

// Pixels returns the frame's pixel buffer. The returned slice must not be modified.
func (f Frame) Pixels() []byte { return f.pixels }

// Width returns the frame width in pixels.
func (f Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f Frame) Height() int { return f.height }

// Format returns the pixel format of the frame.
func (f Frame) Format() common.PixelFormat { return f.format }

// Duration returns the authored display duration of the frame.
func (f Frame) Duration() time.Duration { return f.duration }

// frameStore is the implementation of the FrameStore interface.
type frameStore struct {
	frames []Frame
	format common.PixelFormat
	width  int
	height int
	total  time.Duration
}

// FrameStore is an immutable ordered sequence of decoded frames, built once at load time.
// Every frame shares the pixel format and dimensions of the first frame, so the store
// can configure a single GPU texture size and output surface format.
type FrameStore interface {
	// Count returns the number of frames in the store. It is always at least 1.
	//
	// Returns:
	//   - int: the frame count
	Count() int

	// FrameAt returns the frame at the given index.
	//
	// Parameters:
	//   - index: the frame index in [0, Count())
	//
	// Returns:
	//   - Frame: the frame at index
	//   - error: an error wrapping common.ErrIndex if index is out of range
	FrameAt(index int) (Frame, error)

	// DurationAt returns the authored display duration of the frame at the given index.
	//
	// Parameters:
	//   - index: the frame index in [0, Count())
	//
	// Returns:
	//   - time.Duration: the frame duration
	//   - error: an error wrapping common.ErrIndex if index is out of range
	DurationAt(index int) (time.Duration, error)

	// Format returns the pixel format shared by every frame.
	//
	// Returns:
	//   - common.PixelFormat: the store's pixel format
	Format() common.PixelFormat

	// Bounds returns the dimensions shared by every frame.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Bounds() (width, height int)

	// TotalDuration returns the sum of all frame durations, i.e. the length of one
	// variable-rate loop.
	//
	// Returns:
	//   - time.Duration: total authored duration
	TotalDuration() time.Duration
}

var _ FrameStore = &frameStore{}

// NewFrameStore validates the decoded frames and builds an immutable FrameStore from them.
// The raw slice is copied, so later changes to it are not observed by the store.
//
// Parameters:
//   - raw: the decoded frames in presentation order
//
// Returns:
//   - FrameStore: the immutable frame store
//   - error: an error wrapping common.ErrDecode if raw is empty, a frame's format or size disagrees
//     with the first frame, a pixel buffer has the wrong length, or a duration is not positive
func NewFrameStore(raw []RawFrame) (FrameStore, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("frame store: no frames: %w", common.ErrDecode)
	}

	first := raw[0]
	if !first.Format.Valid() {
		return nil, fmt.Errorf("frame store: frame 0 has undefined pixel format %v: %w", first.Format, common.ErrDecode)
	}
	if first.Width <= 0 || first.Height <= 0 {
		return nil, fmt.Errorf("frame store: frame 0 has invalid size %dx%d: %w", first.Width, first.Height, common.ErrDecode)
	}

	s := &frameStore{
		frames: make([]Frame, len(raw)),
		format: first.Format,
		width:  first.Width,
		height: first.Height,
	}
	for i, r := range raw {
		if r.Format != s.format {
			return nil, fmt.Errorf("frame store: frame %d format %v differs from %v: %w", i, r.Format, s.format, common.ErrDecode)
		}
		if r.Width != s.width || r.Height != s.height {
			return nil, fmt.Errorf("frame store: frame %d size %dx%d differs from %dx%d: %w", i, r.Width, r.Height, s.width, s.height, common.ErrDecode)
		}
		if want := r.Width * r.Height * r.Format.BytesPerPixel(); len(r.Pixels) != want {
			return nil, fmt.Errorf("frame store: frame %d has %d pixel bytes, want %d: %w", i, len(r.Pixels), want, common.ErrDecode)
		}
		if r.Duration <= 0 {
			return nil, fmt.Errorf("frame store: frame %d has non-positive duration %v: %w", i, r.Duration, common.ErrDecode)
		}
		s.frames[i] = Frame{
			pixels:   bytes.Clone(r.Pixels),
			width:    r.Width,
			height:   r.Height,
			format:   r.Format,
			duration: r.Duration,
		}
		s.total += r.Duration
	}
	return s, nil
}

func (s *frameStore) Count() int {
	return len(s.frames)
}

func (s *frameStore) FrameAt(index int) (Frame, error) {
	if index < 0 || index >= len(s.frames) {
		return Frame{}, fmt.Errorf("frame store: index %d not in [0, %d): %w", index, len(s.frames), common.ErrIndex)
	}
	return s.frames[index], nil
}

func (s *frameStore) DurationAt(index int) (time.Duration, error) {
	f, err := s.FrameAt(index)
	if err != nil {
		return 0, err
	}
	return f.duration, nil
}

func (s *frameStore) Format() common.PixelFormat {
	return s.format
}

func (s *frameStore) Bounds() (int, int) {
	return s.width, s.height
}

func (s *frameStore) TotalDuration() time.Duration {
	return s.total
}
