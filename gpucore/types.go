package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// SamplerID is an opaque handle to a texture sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	TextureFormatBGRA8Unorm

	// TextureFormatRGBA32Float is 32-bit RGBA, floating point.
	TextureFormatRGBA32Float
)

// BytesPerPixel returns the size of one texel, or 0 for unknown formats.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatBGRA8Unorm:
		return 4
	case TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatBGRA8Unorm:
		return "BGRA8Unorm"
	case TextureFormatRGBA32Float:
		return "RGBA32Float"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint32(f))
	}
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageCopySrc indicates the texture can be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << 0

	// TextureUsageCopyDst indicates the texture can be used as a copy destination.
	TextureUsageCopyDst TextureUsage = 1 << 1

	// TextureUsageTextureBinding indicates the texture can be bound as a sampled texture.
	TextureUsageTextureBinding TextureUsage = 1 << 2

	// TextureUsageStorageBinding indicates the texture can be bound as a storage texture.
	TextureUsageStorageBinding TextureUsage = 1 << 3
)

// TextureUsageKernelIO is the usage set a texture needs to be read by one
// kernel, written by another, uploaded and read back.
const TextureUsageKernelIO = TextureUsageCopySrc | TextureUsageCopyDst |
	TextureUsageTextureBinding | TextureUsageStorageBinding

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture size in pixels.
	Width, Height int

	// Format is the texel format.
	Format TextureFormat

	// Usage is the set of allowed usages.
	Usage TextureUsage
}

// Validate reports whether the descriptor can be used to create a texture.
func (d *TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: texture size %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if d.Format.BytesPerPixel() == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, d.Format)
	}
	if d.Usage == 0 {
		return fmt.Errorf("%w: texture usage is empty", ErrInvalidDescriptor)
	}
	return nil
}

// Texture is a backend-resident 2D image. It is a value: copying a Texture
// copies the handle, not the pixels. Two Textures refer to the same image
// iff their IDs are equal.
type Texture struct {
	ID   TextureID
	Desc TextureDesc
}

// Width returns the texture width in pixels.
func (t Texture) Width() int { return t.Desc.Width }

// Height returns the texture height in pixels.
func (t Texture) Height() int { return t.Desc.Height }

// Format returns the texel format.
func (t Texture) Format() TextureFormat { return t.Desc.Format }

// IsValid reports whether t refers to a texture.
func (t Texture) IsValid() bool { return t.ID != InvalidID }

// MatchingDescriptor returns a descriptor for a new texture with the same
// size, format and usage as t.
func (t Texture) MatchingDescriptor() TextureDesc {
	d := t.Desc
	if d.Label != "" {
		d.Label += " (copy)"
	}
	return d
}

// AddressMode controls how texture coordinates outside the image are resolved.
type AddressMode uint32

// Address modes.
const (
	// AddressModeClampToZero returns transparent black outside the image.
	AddressModeClampToZero AddressMode = iota + 1

	// AddressModeClampToEdge clamps coordinates to the nearest edge texel.
	AddressModeClampToEdge

	// AddressModeRepeat wraps coordinates around the image.
	AddressModeRepeat

	// AddressModeMirrorRepeat wraps coordinates with mirroring.
	AddressModeMirrorRepeat
)

func (m AddressMode) String() string {
	switch m {
	case AddressModeClampToZero:
		return "ClampToZero"
	case AddressModeClampToEdge:
		return "ClampToEdge"
	case AddressModeRepeat:
		return "Repeat"
	case AddressModeMirrorRepeat:
		return "MirrorRepeat"
	default:
		return fmt.Sprintf("AddressMode(%d)", uint32(m))
	}
}

// FilterMode selects texel filtering.
type FilterMode uint32

// Filter modes.
const (
	// FilterModeNearest uses nearest-neighbor filtering.
	FilterModeNearest FilterMode = iota + 1

	// FilterModeLinear uses linear interpolation.
	FilterModeLinear
)

// SamplerDesc describes a texture sampler.
type SamplerDesc struct {
	// Label is an optional debug label.
	Label string

	// AddressModeU, AddressModeV and AddressModeW are per-axis address modes.
	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode

	// MagFilter and MinFilter select magnification and minification filtering.
	MagFilter FilterMode
	MinFilter FilterMode

	// NormalizedCoordinates selects [0,1) coordinates instead of pixel
	// coordinates.
	NormalizedCoordinates bool
}

// ClampsToZero reports whether any axis uses AddressModeClampToZero.
func (d *SamplerDesc) ClampsToZero() bool {
	return d.AddressModeU == AddressModeClampToZero ||
		d.AddressModeV == AddressModeClampToZero ||
		d.AddressModeW == AddressModeClampToZero
}

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeSampler is a texture sampler binding.
	BindingTypeSampler

	// BindingTypeSampledTexture is a sampled (read) texture binding.
	BindingTypeSampledTexture

	// BindingTypeStorageTexture is a write-only storage texture binding.
	BindingTypeStorageTexture
)

// Bindings of a unary image program in bind group 0. Every kernel in
// imgkernel reads one image and writes another using this layout.
const (
	BindingSource      uint32 = 0
	BindingDestination uint32 = 1
	BindingSampler     uint32 = 2
	BindingParams      uint32 = 3
)

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// MinBindingSize is the minimum buffer size for buffer bindings.
	// Set to 0 for non-buffer bindings.
	MinBindingSize uint64

	// StorageFormat is the texel format of a storage texture binding.
	StorageFormat TextureFormat
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	// Label is an optional debug label.
	Label string

	// Entries defines the bindings in this layout.
	Entries []BindGroupLayoutEntry
}

// Entry returns the entry for binding, if present.
func (d *BindGroupLayoutDesc) Entry(binding uint32) (BindGroupLayoutEntry, bool) {
	for _, e := range d.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return BindGroupLayoutEntry{}, false
}

// ShaderModuleDesc describes a shader module.
type ShaderModuleDesc struct {
	// Label is an optional debug label.
	Label string

	// WGSL is the program source. Backends that consume SPIR-V compile it
	// with naga.
	WGSL string
}

// Grid is a three-dimensional count, used both for the number of
// work-groups in a dispatch and for the number of invocations per group.
type Grid struct {
	X, Y, Z uint32
}

// Invocations returns X*Y*Z.
func (g Grid) Invocations() uint64 {
	return uint64(g.X) * uint64(g.Y) * uint64(g.Z)
}

// IsEmpty reports whether the grid contains no cells.
func (g Grid) IsEmpty() bool {
	return g.X == 0 || g.Y == 0 || g.Z == 0
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// ShaderModule contains the compute shader.
	ShaderModule ShaderModuleID

	// EntryPoint is the name of the shader entry point function.
	EntryPoint string

	// WorkgroupSize is the @workgroup_size declared by the entry point.
	WorkgroupSize Grid
}
