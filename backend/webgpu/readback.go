//go:build !nogpu

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/imgkernel/gpucore"
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

	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	a.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.raw,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(rowBytes),
			RowsPerImage: uint32(h),
		},
		&wgpu.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// ReadTexture copies the texture into a mappable buffer, waits for the copy
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

	a.queueMu.Lock()
	defer a.queueMu.Unlock()

	staging, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: t.desc.Label + " readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := a.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: t.raw, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{BytesPerRow: paddedRow, RowsPerImage: uint32(h)},
		},
		&wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: finish readback: %w", err)
	}
	a.queue.Submit(cmd)
	cmd.Release()

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = s == wgpu.BufferMapAsyncStatusSuccess
	})
	a.device.Poll(true, nil)
	if !mapped {
		return nil, fmt.Errorf("webgpu: map staging buffer: status %v", status)
	}
	defer staging.Unmap()

	padded := staging.GetMappedRange(0, uint(size))
	out := make([]byte, int(rowBytes)*h)
	for y := 0; y < h; y++ {
		copy(out[y*int(rowBytes):(y+1)*int(rowBytes)], padded[y*int(paddedRow):])
	}
	return out, nil
}
