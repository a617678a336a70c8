package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/config"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer"
	"github.com/Carmen-Shannon/oxy-apng/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables the frame rate profiler. Enabled by default.
//
// Parameters:
//   - enabled: if true, presented and skipped frame rates are logged
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithTitle sets the window title prefix. Defaults to the source file name.
//
// Parameters:
//   - title: the title text
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.title = title
	}
}

// WithConfig sets the initial configuration. Ignored when WithConfigFile is also given.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithConfigFile loads the configuration from a TOML file and reloads it while Run is active.
//
// Parameters:
//   - path: the configuration file path
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigFile(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configFile = path
	}
}

// WithLogger sets the logger used by the engine and its components.
// By default a text logger on stderr at the configured level is used.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithPixelFormat sets the decoded frame format, which also selects the surface format.
//
// Parameters:
//   - format: PixelFormatRGBA8Unorm (default) or another supported format
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPixelFormat(format common.PixelFormat) EngineBuilderOption {
	return func(e *engine) {
		e.pixelFormat = format
	}
}

// WithPresentMode sets the surface present mode. Defaults to VSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPresentMode(mode renderer.PresentMode) EngineBuilderOption {
	return func(e *engine) {
		e.presentMode = mode
	}
}

// WithForceSoftwareRenderer requests a software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) EngineBuilderOption {
	return func(e *engine) {
		e.software = force
	}
}

// WithUploadWorkers sets the number of workers converting frames for upload.
//
// Parameters:
//   - n: worker count; values <= 0 keep the default
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithUploadWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		e.workers = n
	}
}
