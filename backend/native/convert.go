//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// === Type Conversion Helpers ===

func convertTextureFormat(format gpucore.TextureFormat) (gputypes.TextureFormat, error) {
	switch format {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case gpucore.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, nil
	case gpucore.TextureFormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float, nil
	default:
		return 0, fmt.Errorf("%w: %v", gpucore.ErrUnsupportedFormat, format)
	}
}

func convertTextureUsage(usage gpucore.TextureUsage) gputypes.TextureUsage {
	var u gputypes.TextureUsage
	if usage&gpucore.TextureUsageCopySrc != 0 {
		u |= gputypes.TextureUsageCopySrc
	}
	if usage&gpucore.TextureUsageCopyDst != 0 {
		u |= gputypes.TextureUsageCopyDst
	}
	if usage&gpucore.TextureUsageTextureBinding != 0 {
		u |= gputypes.TextureUsageTextureBinding
	}
	if usage&gpucore.TextureUsageStorageBinding != 0 {
		u |= gputypes.TextureUsageStorageBinding
	}
	return u
}

func convertAddressMode(mode gpucore.AddressMode) (gputypes.AddressMode, error) {
	switch mode {
	case gpucore.AddressModeClampToZero, gpucore.AddressModeClampToEdge:
		return gputypes.AddressModeClampToEdge, nil
	case gpucore.AddressModeRepeat:
		return gputypes.AddressModeRepeat, nil
	case gpucore.AddressModeMirrorRepeat:
		return gputypes.AddressModeMirrorRepeat, nil
	default:
		return 0, fmt.Errorf("%w: address mode %v", gpucore.ErrInvalidDescriptor, mode)
	}
}

func convertFilterMode(mode gpucore.FilterMode) (gputypes.FilterMode, error) {
	switch mode {
	case gpucore.FilterModeNearest:
		return gputypes.FilterModeNearest, nil
	case gpucore.FilterModeLinear:
		return gputypes.FilterModeLinear, nil
	default:
		return 0, fmt.Errorf("%w: filter mode %d", gpucore.ErrInvalidDescriptor, mode)
	}
}

func convertSampler(desc *gpucore.SamplerDesc) (*hal.SamplerDescriptor, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil sampler", gpucore.ErrInvalidDescriptor)
	}
	u, err := convertAddressMode(desc.AddressModeU)
	if err != nil {
		return nil, err
	}
	v, err := convertAddressMode(desc.AddressModeV)
	if err != nil {
		return nil, err
	}
	w, err := convertAddressMode(desc.AddressModeW)
	if err != nil {
		return nil, err
	}
	mag, err := convertFilterMode(desc.MagFilter)
	if err != nil {
		return nil, err
	}
	minf, err := convertFilterMode(desc.MinFilter)
	if err != nil {
		return nil, err
	}
	return &hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: u,
		AddressModeV: v,
		AddressModeW: w,
		MagFilter:    mag,
		MinFilter:    minf,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMinClamp:  0,
		LodMaxClamp:  32,
		Anisotropy:   1,
	}, nil
}

// convertBindGroupLayoutEntry converts gpucore.BindGroupLayoutEntry to gputypes.BindGroupLayoutEntry.
// Sampled textures are unfilterable floats so that nearest samplers work
// with every format.
func convertBindGroupLayoutEntry(entry gpucore.BindGroupLayoutEntry) (gputypes.BindGroupLayoutEntry, error) {
	result := gputypes.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}

	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpucore.BindingTypeSampler:
		result.Sampler = &gputypes.SamplerBindingLayout{
			Type: gputypes.SamplerBindingTypeNonFiltering,
		}
	case gpucore.BindingTypeSampledTexture:
		result.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeStorageTexture:
		format, err := convertTextureFormat(entry.StorageFormat)
		if err != nil {
			return result, err
		}
		result.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        format,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	default:
		return result, fmt.Errorf("%w: binding %d has type %d", gpucore.ErrInvalidDescriptor, entry.Binding, entry.Type)
	}

	return result, nil
}
