package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kamstrup/intmap"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the Renderer during initialization, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// textures holds the GPU textures backing textureViews, keyed by binding index.
	textures *intmap.Map[int, *wgpu.Texture]
	// textureViews holds the GPU texture views created for this provider, keyed by binding index.
	textureViews *intmap.Map[int, *wgpu.TextureView]
	// samplers holds the GPU samplers bound by this provider, keyed by binding index.
	samplers *intmap.Map[int, *wgpu.Sampler]
	// sharedSamplers marks sampler bindings owned by another provider. They are never released here.
	sharedSamplers *intmap.Map[int, bool]

	// intmap has no ordered iteration, so binding keys are tracked separately in insertion order.

	textureBindings []int
	samplerBindings []int

	// The following fields describe mesh providers. They hold per-slot vertex buffers for non-indexed draws.

	// vertexBuffers holds the GPU vertex buffers created for this provider, keyed by vertex buffer slot.
	vertexBuffers *intmap.Map[uint32, *wgpu.Buffer]
	vertexSlots   []uint32
	// vertexCount is the number of vertices for draw calls.
	vertexCount int
}

// BindGroupProvider defines the interface for components that require GPU bind group resources.
// A frame texture provider holds one texture view and a sampler for group 0, a mesh provider holds
// the quad's per-slot vertex buffers. The Renderer uses the provider to create and bind GPU resources.
//
// Usage pattern:
//  1. Owner creates a BindGroupProvider with a debug label
//  2. Renderer.InitTextureView / InitSampler / InitVertexBuffer populate its resources
//  3. Renderer.InitBindGroup creates the layout and bind group from a shader's layout descriptor
//  4. Renderer.DrawCall binds BindGroup() and the vertex buffers
//  5. Owner calls Release() at shutdown
type BindGroupProvider interface {
	// Release releases every GPU resource owned by this provider and clears its bookkeeping.
	// Shared samplers are dropped from the provider without being released.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// TextureView returns the GPU texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// TextureBindings returns the binding indices that hold a texture view, in the order they were set.
	//
	// Returns:
	//   - []int: the texture binding indices
	TextureBindings() []int

	// Sampler returns the GPU sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SamplerBindings returns the binding indices that hold a sampler, in the order they were set.
	//
	// Returns:
	//   - []int: the sampler binding indices
	SamplerBindings() []int

	// VertexBuffer returns the GPU vertex buffer bound at the given slot, or nil if not set.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer(slot uint32) *wgpu.Buffer

	// VertexSlots returns the vertex buffer slots in use, in the order they were set.
	//
	// Returns:
	//   - []uint32: the vertex buffer slots
	VertexSlots() []uint32

	// VertexCount returns the number of vertices for draw calls.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// SetBindGroup sets the bind group after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetTexture stores a GPU texture and its view for a specific binding. The provider owns both.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the texture backing the view
	//   - tv: the texture view to bind
	SetTexture(binding int, tex *wgpu.Texture, tv *wgpu.TextureView)

	// SetSampler stores a GPU sampler owned by this provider for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)

	// SetSharedSampler stores a GPU sampler owned elsewhere for a specific binding.
	// Release does not free shared samplers.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSharedSampler(binding int, s *wgpu.Sampler)

	// SetVertexBuffer stores a GPU vertex buffer for a specific slot after creation by InitVertexBuffer.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - buf: the created vertex buffer
	SetVertexBuffer(slot uint32, buf *wgpu.Buffer)

	// SetVertexCount sets the number of vertices for draw calls.
	//
	// Parameters:
	//   - count: the vertex count
	SetVertexCount(count int)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided label and options.
//
// Parameters:
//   - label: the debug label used for every GPU object the provider holds
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:          label,
		textures:       intmap.New[int, *wgpu.Texture](2),
		textureViews:   intmap.New[int, *wgpu.TextureView](2),
		samplers:       intmap.New[int, *wgpu.Sampler](2),
		sharedSamplers: intmap.New[int, bool](2),
		vertexBuffers:  intmap.New[uint32, *wgpu.Buffer](2),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	tv, _ := p.textureViews.Get(binding)
	return tv
}

func (p *bindGroupProvider) TextureBindings() []int {
	return p.textureBindings
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	s, _ := p.samplers.Get(binding)
	return s
}

func (p *bindGroupProvider) SamplerBindings() []int {
	return p.samplerBindings
}

func (p *bindGroupProvider) VertexBuffer(slot uint32) *wgpu.Buffer {
	buf, _ := p.vertexBuffers.Get(slot)
	return buf
}

func (p *bindGroupProvider) VertexSlots() []uint32 {
	return p.vertexSlots
}

func (p *bindGroupProvider) VertexCount() int {
	return p.vertexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture, tv *wgpu.TextureView) {
	if _, ok := p.textureViews.Get(binding); !ok {
		p.textureBindings = append(p.textureBindings, binding)
	}
	p.textures.Put(binding, tex)
	p.textureViews.Put(binding, tv)
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.putSampler(binding, s)
	p.sharedSamplers.Del(binding)
}

func (p *bindGroupProvider) SetSharedSampler(binding int, s *wgpu.Sampler) {
	p.putSampler(binding, s)
	p.sharedSamplers.Put(binding, true)
}

func (p *bindGroupProvider) putSampler(binding int, s *wgpu.Sampler) {
	if _, ok := p.samplers.Get(binding); !ok {
		p.samplerBindings = append(p.samplerBindings, binding)
	}
	p.samplers.Put(binding, s)
}

func (p *bindGroupProvider) SetVertexBuffer(slot uint32, buf *wgpu.Buffer) {
	if _, ok := p.vertexBuffers.Get(slot); !ok {
		p.vertexSlots = append(p.vertexSlots, slot)
	}
	p.vertexBuffers.Put(slot, buf)
}

func (p *bindGroupProvider) SetVertexCount(count int) {
	p.vertexCount = count
}

func (p *bindGroupProvider) Release() {
	// the bind group references the views and samplers, so it goes first
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}

	for _, binding := range p.textureBindings {
		if tv, ok := p.textureViews.Get(binding); ok && tv != nil {
			tv.Release()
		}
		if tex, ok := p.textures.Get(binding); ok && tex != nil {
			tex.Release()
		}
		p.textureViews.Del(binding)
		p.textures.Del(binding)
	}
	p.textureBindings = nil

	for _, binding := range p.samplerBindings {
		shared, _ := p.sharedSamplers.Get(binding)
		if s, ok := p.samplers.Get(binding); ok && s != nil && !shared {
			s.Release()
		}
		p.samplers.Del(binding)
		p.sharedSamplers.Del(binding)
	}
	p.samplerBindings = nil

	for _, slot := range p.vertexSlots {
		if buf, ok := p.vertexBuffers.Get(slot); ok && buf != nil {
			buf.Release()
		}
		p.vertexBuffers.Del(slot)
	}
	p.vertexSlots = nil
	p.vertexCount = 0

	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
