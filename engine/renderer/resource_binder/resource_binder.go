// package resource_binder uploads a FrameStore to the GPU once and hands out read-only access to the
// resulting textures, quad buffers and render pipeline for the lifetime of a playback session.
package resource_binder

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Bindings of the quad fragment shader's group 0.
const (
	textureBinding = 0
	samplerBinding = 1
)

// Vertex buffer slots of the quad vertex shader.
const (
	positionSlot uint32 = 0
	texCoordSlot uint32 = 1
)

// GPU is the subset of renderer.Renderer the binder allocates resources through.
type GPU interface {
	Pipeline(key string) pipeline.Pipeline
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InitVertexBuffer(provider bind_group_provider.BindGroupProvider, slot uint32, data []byte, vertexCount int) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error
}

var _ GPU = renderer.Renderer(nil)

type resourceBinder struct {
	gpu    GPU
	logger *slog.Logger

	workers     int
	pipelineKey string
	sampler     common.SamplerStagingData

	prepared bool
	frames   []bind_group_provider.BindGroupProvider
	mesh     bind_group_provider.BindGroupProvider
	samplers bind_group_provider.BindGroupProvider
	pipeline pipeline.Pipeline
}

// ResourceBinder owns every GPU resource needed to draw a FrameStore: one texture and bind group per frame,
// a shared sampler, the quad's position and texcoord vertex buffers and the render pipeline.
// Resources are created once by Prepare and are read-only afterwards.
type ResourceBinder interface {
	// Prepare uploads every frame of the store as a texture, allocates the quad vertex buffers, compiles the
	// quad shader and creates the render pipeline targeting outputFormat. It may only succeed once.
	// Any failure releases the work done so far and returns an error wrapping common.ErrGPUResource.
	//
	// Parameters:
	//   - store: the frames to upload
	//   - outputFormat: the color target format of the surface the pipeline renders into
	//
	// Returns:
	//   - error: an error wrapping common.ErrGPUResource if allocation or compilation fails
	Prepare(store frame_store.FrameStore, outputFormat wgpu.TextureFormat) error

	// TextureAt returns the provider holding the texture and bind group for frame i.
	//
	// Parameters:
	//   - i: the frame index
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the frame's provider, bound at group 0
	//   - error: an error wrapping common.ErrIndex when i is outside [0, Count())
	TextureAt(i int) (bind_group_provider.BindGroupProvider, error)

	// VertexBuffer returns the quad position buffer bound at slot 0, or nil before Prepare.
	VertexBuffer() *wgpu.Buffer

	// TexCoordBuffer returns the quad texture coordinate buffer bound at slot 1, or nil before Prepare.
	TexCoordBuffer() *wgpu.Buffer

	// Mesh returns the provider holding both quad vertex buffers and the vertex count, or nil before Prepare.
	Mesh() bind_group_provider.BindGroupProvider

	// Pipeline returns the quad render pipeline, or nil before Prepare.
	Pipeline() pipeline.Pipeline

	// Count returns the number of frame textures, 0 before Prepare.
	Count() int

	// Release frees every texture, bind group, sampler and vertex buffer. The pipeline belongs to the
	// renderer's cache and is released with the renderer.
	Release()
}

var _ ResourceBinder = &resourceBinder{}

// NewResourceBinder creates a ResourceBinder that allocates through gpu.
//
// Parameters:
//   - gpu: the renderer, or any GPU implementation
//   - options: variadic list of ResourceBinderBuilderOption functions
//
// Returns:
//   - ResourceBinder: an unprepared binder
func NewResourceBinder(gpu GPU, options ...ResourceBinderBuilderOption) ResourceBinder {
	b := &resourceBinder{
		gpu:         gpu,
		logger:      slog.New(slog.DiscardHandler),
		workers:     runtime.NumCPU(),
		pipelineKey: "quad",
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *resourceBinder) Prepare(store frame_store.FrameStore, outputFormat wgpu.TextureFormat) error {
	if b.prepared {
		return errors.New("resource binder is already prepared")
	}
	start := time.Now()

	if err := b.prepare(store, outputFormat); err != nil {
		b.Release()
		return fmt.Errorf("prepare gpu resources: %w: %w", common.ErrGPUResource, err)
	}
	b.prepared = true

	w, h := store.Bounds()
	b.logger.Info("gpu resources prepared",
		slog.Int("frames", len(b.frames)),
		slog.Int("width", w),
		slog.Int("height", h),
		slog.Any("output_format", outputFormat),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (b *resourceBinder) prepare(store frame_store.FrameStore, outputFormat wgpu.TextureFormat) error {
	// Textures share the surface's format so sampled values round-trip unchanged through the sRGB conversions.
	textureFormat := common.PixelFormatFromTexture(outputFormat)
	if !textureFormat.Valid() {
		textureFormat = store.Format()
	}

	vs, fs := shader.NewQuadShaders()
	p := pipeline.NewPipeline(b.pipelineKey,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithTargetFormat(outputFormat),
	)
	if err := b.gpu.RegisterPipelines(p); err != nil {
		return err
	}
	// a pipeline registered earlier under the same key wins
	b.pipeline = common.Coalesce(b.gpu.Pipeline(b.pipelineKey), p)

	b.mesh = bind_group_provider.NewBindGroupProvider("quad")
	if err := b.gpu.InitVertexBuffer(b.mesh, positionSlot, common.SliceToBytes(common.QuadPositions[:]), common.QuadVertexCount); err != nil {
		return fmt.Errorf("position buffer: %w", err)
	}
	if err := b.gpu.InitVertexBuffer(b.mesh, texCoordSlot, common.SliceToBytes(common.QuadTexCoords[:]), common.QuadVertexCount); err != nil {
		return fmt.Errorf("texcoord buffer: %w", err)
	}

	b.samplers = bind_group_provider.NewBindGroupProvider("frame")
	if err := b.gpu.InitSampler(b.samplers, samplerBinding, b.sampler); err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	staged, err := b.stage(store, textureFormat)
	if err != nil {
		return err
	}

	// frame bind groups must match the pipeline layout, whose group 0 merges both shader stages
	layout := b.pipeline.BindGroupLayoutDescriptor(0)
	b.frames = make([]bind_group_provider.BindGroupProvider, 0, len(staged))
	for i, data := range staged {
		provider := bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("frame %d", i),
			bind_group_provider.WithSharedSampler(samplerBinding, b.samplers.Sampler(samplerBinding)),
		)
		b.frames = append(b.frames, provider)
		if err := b.gpu.InitTextureView(provider, textureBinding, data); err != nil {
			return fmt.Errorf("frame %d texture: %w", i, err)
		}
		if err := b.gpu.InitBindGroup(provider, layout); err != nil {
			return fmt.Errorf("frame %d bind group: %w", i, err)
		}
	}

	return nil
}

// stage converts every frame into texture upload data on the worker pool.
func (b *resourceBinder) stage(store frame_store.FrameStore, format common.PixelFormat) ([]common.TextureStagingData, error) {
	count := store.Count()
	staged := make([]common.TextureStagingData, count)
	errs := make([]error, count)

	pool := worker.NewDynamicWorkerPool(min(b.workers, count), 256, 1*time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()

				frame, err := store.FrameAt(i)
				if err != nil {
					errs[i] = err
					return nil, err
				}
				staged[i] = stagingData(frame, format)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return staged, nil
}

// stagingData lays out a frame's pixels in the given format. The frame's buffer is reused when no
// channel swap is needed.
func stagingData(frame frame_store.Frame, format common.PixelFormat) common.TextureStagingData {
	pixels := frame.Pixels()
	if frame.Format().IsBGRA() != format.IsBGRA() {
		pixels = swapRedBlue(pixels)
	}
	return common.TextureStagingData{
		Pixels: pixels,
		Width:  uint32(frame.Width()),
		Height: uint32(frame.Height()),
		Format: format,
	}
}

// swapRedBlue returns a copy of a 4-byte-per-pixel buffer with bytes 0 and 2 of every pixel exchanged.
func swapRedBlue(src []byte) []byte {
	dst := make([]byte, len(src))
	for i := 0; i+3 < len(src); i += 4 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
		dst[i+3] = src[i+3]
	}
	return dst
}

func (b *resourceBinder) TextureAt(i int) (bind_group_provider.BindGroupProvider, error) {
	if i < 0 || i >= len(b.frames) {
		return nil, fmt.Errorf("texture %d of %d: %w", i, len(b.frames), common.ErrIndex)
	}
	return b.frames[i], nil
}

func (b *resourceBinder) VertexBuffer() *wgpu.Buffer {
	if b.mesh == nil {
		return nil
	}
	return b.mesh.VertexBuffer(positionSlot)
}

func (b *resourceBinder) TexCoordBuffer() *wgpu.Buffer {
	if b.mesh == nil {
		return nil
	}
	return b.mesh.VertexBuffer(texCoordSlot)
}

func (b *resourceBinder) Mesh() bind_group_provider.BindGroupProvider {
	return b.mesh
}

func (b *resourceBinder) Pipeline() pipeline.Pipeline {
	return b.pipeline
}

func (b *resourceBinder) Count() int {
	return len(b.frames)
}

func (b *resourceBinder) Release() {
	// frame bind groups reference the shared sampler, so they go before it
	for _, f := range b.frames {
		f.Release()
	}
	b.frames = nil
	if b.samplers != nil {
		b.samplers.Release()
		b.samplers = nil
	}
	if b.mesh != nil {
		b.mesh.Release()
		b.mesh = nil
	}
	b.pipeline = nil
	b.prepared = false
}
