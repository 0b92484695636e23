//go:build !nogpu

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/imgkernel/gpucore"
)

func convertTextureFormat(format gpucore.TextureFormat) (wgpu.TextureFormat, error) {
	switch format {
	case gpucore.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case gpucore.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case gpucore.TextureFormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float, nil
	default:
		return 0, fmt.Errorf("%w: %v", gpucore.ErrUnsupportedFormat, format)
	}
}

func convertTextureUsage(usage gpucore.TextureUsage) wgpu.TextureUsage {
	var u wgpu.TextureUsage
	if usage&gpucore.TextureUsageCopySrc != 0 {
		u |= wgpu.TextureUsageCopySrc
	}
	if usage&gpucore.TextureUsageCopyDst != 0 {
		u |= wgpu.TextureUsageCopyDst
	}
	if usage&gpucore.TextureUsageTextureBinding != 0 {
		u |= wgpu.TextureUsageTextureBinding
	}
	if usage&gpucore.TextureUsageStorageBinding != 0 {
		u |= wgpu.TextureUsageStorageBinding
	}
	return u
}

func convertAddressMode(mode gpucore.AddressMode) (wgpu.AddressMode, error) {
	switch mode {
	case gpucore.AddressModeClampToZero, gpucore.AddressModeClampToEdge:
		return wgpu.AddressModeClampToEdge, nil
	case gpucore.AddressModeRepeat:
		return wgpu.AddressModeRepeat, nil
	case gpucore.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat, nil
	default:
		return 0, fmt.Errorf("%w: address mode %v", gpucore.ErrInvalidDescriptor, mode)
	}
}

func convertFilterMode(mode gpucore.FilterMode) (wgpu.FilterMode, error) {
	switch mode {
	case gpucore.FilterModeNearest:
		return wgpu.FilterModeNearest, nil
	case gpucore.FilterModeLinear:
		return wgpu.FilterModeLinear, nil
	default:
		return 0, fmt.Errorf("%w: filter mode %d", gpucore.ErrInvalidDescriptor, mode)
	}
}

func convertSampler(desc *gpucore.SamplerDesc) (*wgpu.SamplerDescriptor, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil sampler", gpucore.ErrInvalidDescriptor)
	}
	var modes [3]wgpu.AddressMode
	for i, m := range []gpucore.AddressMode{desc.AddressModeU, desc.AddressModeV, desc.AddressModeW} {
		wm, err := convertAddressMode(m)
		if err != nil {
			return nil, err
		}
		modes[i] = wm
	}
	mag, err := convertFilterMode(desc.MagFilter)
	if err != nil {
		return nil, err
	}
	minf, err := convertFilterMode(desc.MinFilter)
	if err != nil {
		return nil, err
	}
	return &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  modes[0],
		AddressModeV:  modes[1],
		AddressModeW:  modes[2],
		MagFilter:     mag,
		MinFilter:     minf,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}, nil
}

func convertBindGroupLayoutEntry(entry gpucore.BindGroupLayoutEntry) (wgpu.BindGroupLayoutEntry, error) {
	result := wgpu.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: wgpu.ShaderStageCompute,
	}

	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		result.Buffer.Type = wgpu.BufferBindingTypeUniform
		result.Buffer.MinBindingSize = entry.MinBindingSize
	case gpucore.BindingTypeSampler:
		result.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
	case gpucore.BindingTypeSampledTexture:
		result.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		result.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case gpucore.BindingTypeStorageTexture:
		if entry.StorageFormat != gpucore.TextureFormatRGBA8Unorm && entry.StorageFormat != gpucore.TextureFormatRGBA32Float {
			return result, fmt.Errorf("%w: storage format %v", gpucore.ErrUnsupportedFormat, entry.StorageFormat)
		}
		format, _ := convertTextureFormat(entry.StorageFormat)
		result.StorageTexture.Access = wgpu.StorageTextureAccessWriteOnly
		result.StorageTexture.Format = format
		result.StorageTexture.ViewDimension = wgpu.TextureViewDimension2D
	default:
		return result, fmt.Errorf("%w: binding %d has type %d", gpucore.ErrInvalidDescriptor, entry.Binding, entry.Type)
	}

	return result, nil
}
