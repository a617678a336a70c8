package bind_group_provider_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-apng/engine/renderer/bind_group_provider"
	"github.com/stretchr/testify/assert"
)

func TestBindingBookkeeping(t *testing.T) {
	p := bind_group_provider.NewBindGroupProvider("frame 3", bind_group_provider.WithVertexCount(4))

	p.SetTexture(0, nil, nil)
	p.SetTexture(0, nil, nil)
	p.SetSampler(1, nil)
	p.SetVertexBuffer(1, nil)
	p.SetVertexBuffer(0, nil)
	p.SetVertexBuffer(1, nil)

	assert.Equal(t, "frame 3", p.Label())
	assert.Equal(t, []int{0}, p.TextureBindings())
	assert.Equal(t, []int{1}, p.SamplerBindings())
	assert.Equal(t, []uint32{1, 0}, p.VertexSlots())
	assert.Equal(t, 4, p.VertexCount())
	assert.Nil(t, p.TextureView(5))
	assert.Nil(t, p.VertexBuffer(7))
}

func TestReleaseClearsState(t *testing.T) {
	p := bind_group_provider.NewBindGroupProvider("quad", bind_group_provider.WithSharedSampler(1, nil))
	p.SetTexture(0, nil, nil)
	p.SetVertexBuffer(0, nil)
	p.SetVertexCount(4)

	p.Release()

	assert.Empty(t, p.TextureBindings())
	assert.Empty(t, p.SamplerBindings())
	assert.Empty(t, p.VertexSlots())
	assert.Zero(t, p.VertexCount())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())

	// a second release is a no-op
	p.Release()
}
