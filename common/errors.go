package common

import "errors"

// Error taxonomy shared by every package. Callers wrap these with fmt.Errorf("...: %w", ...)
// and test for them with errors.Is.
var (
	// ErrDecode reports malformed or empty input at load time. No playback is possible.
	ErrDecode = errors.New("decode error")

	// ErrGPUResource reports a device allocation or shader compile/link failure at setup time.
	ErrGPUResource = errors.New("gpu resource error")

	// ErrIndex reports an out-of-range frame access, which indicates a scheduler/store desync.
	ErrIndex = errors.New("frame index out of range")

	// ErrTransientFrame reports a per-callback failure to acquire a surface, command encoder or
	// render pass. The frame is skipped and the next callback retries.
	ErrTransientFrame = errors.New("transient frame error")

	// ErrPipelineMissing reports a draw attempted without a render pipeline, a setup invariant violation.
	ErrPipelineMissing = errors.New("render pipeline missing")
)
