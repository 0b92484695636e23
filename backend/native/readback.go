//go:build !nogpu

package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// copyRowAlignment is the bytes-per-row alignment of texture to buffer
// copies.
const copyRowAlignment = 256

// WriteTexture uploads tightly packed rows in the texture's format.
func (a *Adapter) WriteTexture(tex gpucore.Texture, data []byte) error {
	t, err := a.texture(tex.ID)
	if err != nil {
		return err
	}
	w, h := t.desc.Width, t.desc.Height
	rowBytes := w * t.desc.Format.BytesPerPixel()
	if len(data) != rowBytes*h {
		return fmt.Errorf("%w: write of %d bytes to %dx%d texture",
			gpucore.ErrInvalidDescriptor, len(data), w, h)
	}

	a.submitMu.Lock()
	defer a.submitMu.Unlock()
	err = a.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.raw, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(rowBytes), RowsPerImage: uint32(h)},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: write texture: %w", err)
	}
	// The queue leaves uploaded textures ready for sampling.
	t.usage = gputypes.TextureUsageTextureBinding
	return nil
}

// ReadTexture copies the texture into a staging buffer, waits for the copy
// and returns tightly packed rows in the texture's format.
func (a *Adapter) ReadTexture(tex gpucore.Texture) ([]byte, error) {
	t, err := a.texture(tex.ID)
	if err != nil {
		return nil, err
	}
	w, h := t.desc.Width, t.desc.Height
	rowBytes := uint32(w * t.desc.Format.BytesPerPixel())
	paddedRow := (rowBytes + copyRowAlignment - 1) &^ (copyRowAlignment - 1)
	size := uint64(paddedRow) * uint64(h)

	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.desc.Label + " readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}

	rng := hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1}
	if t.usage != gputypes.TextureUsageCopySrc {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: t.raw,
			Range:   rng,
			Usage:   hal.TextureUsageTransition{OldUsage: t.usage, NewUsage: gputypes.TextureUsageCopySrc},
		}})
	}
	encoder.CopyTextureToBuffer(t.raw, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: paddedRow, RowsPerImage: uint32(h)},
		TextureBase:  hal.ImageCopyTexture{Texture: t.raw, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	}})
	// Return the texture to the state dispatches expect of a source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Range:   rng,
		Usage:   hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopySrc, NewUsage: gputypes.TextureUsageTextureBinding},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	index, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return nil, fmt.Errorf("native: submit readback: %w", err)
	}
	t.usage = gputypes.TextureUsageTextureBinding
	if err := a.waitSubmission(index); err != nil {
		return nil, err
	}

	mapping, err := a.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("native: map staging buffer: %w", err)
	}
	defer func() { _ = a.device.UnmapBuffer(staging) }()

	padded := unsafe.Slice((*byte)(mapping.Ptr), size)
	out := make([]byte, int(rowBytes)*h)
	for y := 0; y < h; y++ {
		copy(out[y*int(rowBytes):(y+1)*int(rowBytes)], padded[y*int(paddedRow):])
	}
	return out, nil
}
