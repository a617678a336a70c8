package resource_binder

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-apng/common"
)

// ResourceBinderBuilderOption is a functional option applied to a resource binder during construction via NewResourceBinder.
type ResourceBinderBuilderOption func(*resourceBinder)

// WithWorkers sets the number of workers converting frame pixels into upload data. Defaults to runtime.NumCPU().
//
// Parameters:
//   - n: the worker count, values below 1 are treated as 1
//
// Returns:
//   - ResourceBinderBuilderOption: a function that applies the worker count to a binder
func WithWorkers(n int) ResourceBinderBuilderOption {
	return func(b *resourceBinder) {
		b.workers = max(n, 1)
	}
}

// WithPipelineKey sets the key the quad pipeline is registered under.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - ResourceBinderBuilderOption: a function that applies the pipeline key to a binder
func WithPipelineKey(key string) ResourceBinderBuilderOption {
	return func(b *resourceBinder) {
		b.pipelineKey = key
	}
}

// WithSampler sets the configuration of the sampler shared by every frame texture.
// Zero fields use the renderer defaults of clamp-to-edge addressing and linear filtering.
//
// Parameters:
//   - sampler: the sampler configuration
//
// Returns:
//   - ResourceBinderBuilderOption: a function that applies the sampler configuration to a binder
func WithSampler(sampler common.SamplerStagingData) ResourceBinderBuilderOption {
	return func(b *resourceBinder) {
		b.sampler = sampler
	}
}

// WithLogger sets the structured logger used to report setup.
func WithLogger(logger *slog.Logger) ResourceBinderBuilderOption {
	return func(b *resourceBinder) {
		b.logger = logger
	}
}
