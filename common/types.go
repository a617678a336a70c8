// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// PixelFormat identifies the memory layout of a decoded frame's pixel buffer.
// Every defined format uses 4 bytes per pixel, 8 bits per channel.
type PixelFormat int

const (
	// PixelFormatUndefined is the zero value and is never valid for a frame.
	PixelFormatUndefined PixelFormat = iota

	// PixelFormatRGBA8Unorm stores red, green, blue, alpha bytes in that order, linear encoding.
	PixelFormatRGBA8Unorm

	// PixelFormatRGBA8UnormSrgb stores red, green, blue, alpha bytes in that order, sRGB encoding.
	PixelFormatRGBA8UnormSrgb

	// PixelFormatBGRA8Unorm stores blue, green, red, alpha bytes in that order, linear encoding.
	PixelFormatBGRA8Unorm

	// PixelFormatBGRA8UnormSrgb stores blue, green, red, alpha bytes in that order, sRGB encoding.
	PixelFormatBGRA8UnormSrgb
)

// BytesPerPixel returns the number of bytes a single pixel occupies in this format,
// or 0 if the format is undefined.
//
// Returns:
//   - int: bytes per pixel
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA8Unorm, PixelFormatRGBA8UnormSrgb, PixelFormatBGRA8Unorm, PixelFormatBGRA8UnormSrgb:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is one of the defined pixel formats.
func (f PixelFormat) Valid() bool {
	return f.BytesPerPixel() != 0
}

// IsBGRA reports whether the red and blue channels are swapped relative to RGBA order.
func (f PixelFormat) IsBGRA() bool {
	return f == PixelFormatBGRA8Unorm || f == PixelFormatBGRA8UnormSrgb
}

// TextureFormat maps the pixel format to the matching WebGPU texture format.
//
// Returns:
//   - wgpu.TextureFormat: the texture format, or wgpu.TextureFormatUndefined for an undefined pixel format
func (f PixelFormat) TextureFormat() wgpu.TextureFormat {
	switch f {
	case PixelFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case PixelFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case PixelFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case PixelFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	default:
		return wgpu.TextureFormatUndefined
	}
}

// PixelFormatFromTexture maps a WebGPU texture format back to a PixelFormat.
// Formats without an 8-bit RGBA/BGRA equivalent map to PixelFormatUndefined.
//
// Parameters:
//   - tf: the WebGPU texture format
//
// Returns:
//   - PixelFormat: the matching pixel format
func PixelFormatFromTexture(tf wgpu.TextureFormat) PixelFormat {
	switch tf {
	case wgpu.TextureFormatRGBA8Unorm:
		return PixelFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return PixelFormatRGBA8UnormSrgb
	case wgpu.TextureFormatBGRA8Unorm:
		return PixelFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return PixelFormatBGRA8UnormSrgb
	default:
		return PixelFormatUndefined
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8Unorm:
		return "rgba8unorm"
	case PixelFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case PixelFormatBGRA8Unorm:
		return "bgra8unorm"
	case PixelFormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// TextureStagingData holds pixel data for a texture binding pending GPU upload.
// This is primarily used by the resource binder to stage frame data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture, laid out according to Format.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Format is the layout of Pixels and the format the GPU texture is created with.
	Format PixelFormat
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// This is primarily used in the BindGroupProvider to stage sampler data before creating the GPU sampler and bind group.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}
