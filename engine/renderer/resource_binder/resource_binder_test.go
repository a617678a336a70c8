package resource_binder_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-apng/common"
	"github.com/Carmen-Shannon/oxy-apng/engine/frame_store"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/resource_binder"
	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGPU records what the binder asks for. It never creates GPU objects.
type fakeGPU struct {
	mu sync.Mutex

	pipelines   map[string]pipeline.Pipeline
	vertexData  map[uint32][]byte
	textures    map[string]common.TextureStagingData
	bindGroups  []string
	layouts     []wgpu.BindGroupLayoutDescriptor
	samplers    int
	failTexture string
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		pipelines:  make(map[string]pipeline.Pipeline),
		vertexData: make(map[uint32][]byte),
		textures:   make(map[string]common.TextureStagingData),
	}
}

func (f *fakeGPU) Pipeline(key string) pipeline.Pipeline {
	return f.pipelines[key]
}

func (f *fakeGPU) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		if _, ok := f.pipelines[p.PipelineKey()]; !ok {
			f.pipelines[p.PipelineKey()] = p
		}
	}
	return nil
}

func (f *fakeGPU) InitVertexBuffer(provider bind_group_provider.BindGroupProvider, slot uint32, data []byte, vertexCount int) error {
	f.vertexData[slot] = append([]byte(nil), data...)
	provider.SetVertexBuffer(slot, nil)
	provider.SetVertexCount(vertexCount)
	return nil
}

func (f *fakeGPU) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if provider.Label() == f.failTexture {
		return errors.New("out of memory")
	}
	f.textures[provider.Label()] = stagingData
	provider.SetTexture(bindingKey, nil, nil)
	return nil
}

func (f *fakeGPU) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	f.samplers++
	provider.SetSampler(bindingKey, nil)
	return nil
}

func (f *fakeGPU) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindGroups = append(f.bindGroups, provider.Label())
	f.layouts = append(f.layouts, descriptor)
	return nil
}

func testStore(t *testing.T, n int, format common.PixelFormat) frame_store.FrameStore {
	t.Helper()
	raw := make([]frame_store.RawFrame, n)
	for i := range raw {
		raw[i] = frame_store.RawFrame{
			// one pixel: r=10, g=20, b=30, a=i
			Pixels:   []byte{10, 20, 30, byte(i)},
			Width:    1,
			Height:   1,
			Format:   format,
			Duration: 100 * time.Millisecond,
		}
	}
	store, err := frame_store.NewFrameStore(raw)
	require.NoError(t, err)
	return store
}

func TestPrepareUploadsEveryFrame(t *testing.T) {
	gpu := newFakeGPU()
	b := resource_binder.NewResourceBinder(gpu, resource_binder.WithWorkers(2))

	require.NoError(t, b.Prepare(testStore(t, 5, common.PixelFormatRGBA8Unorm), wgpu.TextureFormatRGBA8Unorm))

	assert.Equal(t, 5, b.Count())
	for i := range 5 {
		tex, err := b.TextureAt(i)
		require.NoError(t, err)
		assert.NotNil(t, tex)
	}
	assert.Len(t, gpu.textures, 5)
	assert.Len(t, gpu.bindGroups, 5)
	assert.Equal(t, 1, gpu.samplers)

	staged := gpu.textures["frame 4"]
	assert.Equal(t, []byte{10, 20, 30, 4}, staged.Pixels)
	assert.Equal(t, common.PixelFormatRGBA8Unorm, staged.Format)
	assert.Equal(t, uint32(1), staged.Width)

	// positions are float32x4, texcoords float32x2, 4 vertices each
	assert.Len(t, gpu.vertexData[0], 4*4*4)
	assert.Len(t, gpu.vertexData[1], 4*2*4)
	require.NotNil(t, b.Mesh())
	assert.Equal(t, common.QuadVertexCount, b.Mesh().VertexCount())
	assert.Equal(t, []uint32{0, 1}, b.Mesh().VertexSlots())

	require.NotNil(t, b.Pipeline())
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, b.Pipeline().TargetFormat())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, b.Pipeline().Topology())
}

func TestPrepareBindGroupsMatchPipelineLayout(t *testing.T) {
	gpu := newFakeGPU()
	b := resource_binder.NewResourceBinder(gpu)
	require.NoError(t, b.Prepare(testStore(t, 3, common.PixelFormatRGBA8Unorm), wgpu.TextureFormatRGBA8Unorm))

	vs, fs := shader.NewQuadShaders()
	want := pipeline.MergeBindGroupLayouts(vs.BindGroupLayoutDescriptors(), fs.BindGroupLayoutDescriptors())[0]
	require.Len(t, gpu.layouts, 3)
	for i, got := range gpu.layouts {
		assert.Equal(t, want, got, "frame %d", i)
		for _, e := range got.Entries {
			assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility, "frame %d binding %d", i, e.Binding)
		}
	}
}

func TestPrepareSwizzlesToSurfaceFormat(t *testing.T) {
	gpu := newFakeGPU()
	b := resource_binder.NewResourceBinder(gpu)

	require.NoError(t, b.Prepare(testStore(t, 2, common.PixelFormatRGBA8Unorm), wgpu.TextureFormatBGRA8UnormSrgb))

	staged := gpu.textures["frame 1"]
	assert.Equal(t, []byte{30, 20, 10, 1}, staged.Pixels)
	assert.Equal(t, common.PixelFormatBGRA8UnormSrgb, staged.Format)
}

func TestPrepareKeepsStoreFormatForUnknownSurface(t *testing.T) {
	gpu := newFakeGPU()
	b := resource_binder.NewResourceBinder(gpu)

	require.NoError(t, b.Prepare(testStore(t, 1, common.PixelFormatBGRA8Unorm), wgpu.TextureFormatRGBA16Float))

	staged := gpu.textures["frame 0"]
	assert.Equal(t, common.PixelFormatBGRA8Unorm, staged.Format)
	assert.Equal(t, []byte{10, 20, 30, 0}, staged.Pixels)
}

func TestPrepareFailureReleasesEverything(t *testing.T) {
	gpu := newFakeGPU()
	gpu.failTexture = "frame 2"
	b := resource_binder.NewResourceBinder(gpu)

	err := b.Prepare(testStore(t, 4, common.PixelFormatRGBA8Unorm), wgpu.TextureFormatRGBA8Unorm)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrGPUResource)
	assert.Contains(t, err.Error(), "frame 2 texture")
	assert.Zero(t, b.Count())
	assert.Nil(t, b.Mesh())
	assert.Nil(t, b.Pipeline())
	_, err = b.TextureAt(0)
	assert.ErrorIs(t, err, common.ErrIndex)
}

func TestPrepareOnlyOnce(t *testing.T) {
	b := resource_binder.NewResourceBinder(newFakeGPU())
	store := testStore(t, 1, common.PixelFormatRGBA8Unorm)

	require.NoError(t, b.Prepare(store, wgpu.TextureFormatRGBA8Unorm))
	err := b.Prepare(store, wgpu.TextureFormatRGBA8Unorm)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrGPUResource)
	assert.Equal(t, 1, b.Count())
}

func TestPrepareReusesCachedPipeline(t *testing.T) {
	gpu := newFakeGPU()
	b := resource_binder.NewResourceBinder(gpu, resource_binder.WithPipelineKey("frames"))
	store := testStore(t, 1, common.PixelFormatRGBA8Unorm)

	require.NoError(t, b.Prepare(store, wgpu.TextureFormatRGBA8Unorm))
	first := b.Pipeline()
	b.Release()

	require.NoError(t, b.Prepare(store, wgpu.TextureFormatRGBA8Unorm))
	assert.Same(t, first, b.Pipeline())
	assert.Len(t, gpu.pipelines, 1)
}

func TestTextureAtOutOfRange(t *testing.T) {
	b := resource_binder.NewResourceBinder(newFakeGPU())
	require.NoError(t, b.Prepare(testStore(t, 3, common.PixelFormatRGBA8Unorm), wgpu.TextureFormatRGBA8Unorm))

	for _, i := range []int{-1, 3, 100} {
		_, err := b.TextureAt(i)
		assert.ErrorIs(t, err, common.ErrIndex, "index %d", i)
	}
}

func TestAccessorsBeforePrepare(t *testing.T) {
	b := resource_binder.NewResourceBinder(newFakeGPU())

	assert.Zero(t, b.Count())
	assert.Nil(t, b.VertexBuffer())
	assert.Nil(t, b.TexCoordBuffer())
	assert.Nil(t, b.Pipeline())
	b.Release()
}
