package decoder

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
)

// DecoderBuilderOption is a functional option for configuring a Decoder.
type DecoderBuilderOption func(*decoder)

// WithPixelFormat sets the layout of the decoded pixel buffers. Undefined formats are ignored.
//
// Parameters:
//   - format: the output pixel format
//
// Returns:
//   - DecoderBuilderOption: option function to apply
func WithPixelFormat(format common.PixelFormat) DecoderBuilderOption {
	return func(d *decoder) {
		if format.Valid() {
			d.format = format
		}
	}
}

// WithDefaultDelay sets the duration given to frames whose source delay is zero or absent.
// Values <= 0 are ignored.
//
// Parameters:
//   - delay: the default frame duration (default 100ms)
//
// Returns:
//   - DecoderBuilderOption: option function to apply
func WithDefaultDelay(delay time.Duration) DecoderBuilderOption {
	return func(d *decoder) {
		if delay > 0 {
			d.defaultDelay = delay
		}
	}
}

// WithLogger sets the logger used for decode diagnostics.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - DecoderBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) DecoderBuilderOption {
	return func(d *decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}
