package kernel

import (
	"github.com/gogpu/imgkernel/gpucore"
)

// Unary is a kernel that reads one texture and writes another.
type Unary interface {
	// Name returns the kernel name (see Names).
	Name() string

	// EdgeMode returns the current edge mode.
	EdgeMode() EdgeMode

	// SetEdgeMode changes the edge mode. The sampling resource is rebuilt
	// only when mode differs from the current one. On failure the previous
	// mode and sampler stay in effect.
	SetEdgeMode(mode EdgeMode) error

	// Offset returns the source offset.
	Offset() Offset

	// SetOffset sets the source offset.
	SetOffset(off Offset)

	// ClipRect returns the configured, unclipped clip rectangle.
	ClipRect() Region

	// SetClipRect sets the clip rectangle. It may extend beyond the
	// destination; it is clipped on every Encode.
	SetClipRect(r Region)

	// Strength returns the kernel's tunable intensity.
	Strength() float32

	// SetStrength sets the kernel's tunable intensity.
	SetStrength(s float32)

	// Encode records one dispatch reading src and writing dst into cb.
	// Only pixels inside the clipped clip rectangle of dst are written.
	Encode(cb gpucore.CommandBuffer, src, dst gpucore.Texture)

	// EncodeInPlace filters the texture in *slot. True in-place execution
	// is never supported, so alloc is required: without it EncodeInPlace
	// returns false and leaves *slot untouched. With it, the result is
	// written to a new texture from alloc, which replaces *slot. The caller
	// owns both the old and the new texture.
	EncodeInPlace(cb gpucore.CommandBuffer, slot *gpucore.Texture, alloc CopyAllocator) (bool, error)

	// Release destroys the kernel's sampler and pipeline.
	Release()
}

// CopyAllocator returns a new texture with the same size and format as src,
// to be used as the destination of an out-of-place dispatch.
type CopyAllocator func(k Unary, cb gpucore.CommandBuffer, src gpucore.Texture) (gpucore.Texture, error)

// MatchingAllocator returns a CopyAllocator that creates a texture from
// src.MatchingDescriptor() on device.
func MatchingAllocator(device gpucore.GPUAdapter) CopyAllocator {
	return func(_ Unary, _ gpucore.CommandBuffer, src gpucore.Texture) (gpucore.Texture, error) {
		desc := src.MatchingDescriptor()
		return device.CreateTexture(&desc)
	}
}
