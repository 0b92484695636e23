package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/filter"
)

// texture is a CPU image in the texture's own format, rows tightly packed.
type texture struct {
	mu   sync.RWMutex
	desc gpucore.TextureDesc
	data []byte
}

func newTexture(desc *gpucore.TextureDesc) (*texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	switch desc.Format {
	case gpucore.TextureFormatRGBA8Unorm, gpucore.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("%w: software backend: %v", gpucore.ErrUnsupportedFormat, desc.Format)
	}
	return &texture{
		desc: *desc,
		data: make([]byte, desc.Width*desc.Height*4),
	}, nil
}

// load returns the texel at (x, y), which must be inside the texture.
func (t *texture) load(x, y int) filter.Color {
	i := (y*t.desc.Width + x) * 4
	p := t.data[i : i+4 : i+4]
	if t.desc.Format == gpucore.TextureFormatBGRA8Unorm {
		return filter.FromBytes(p[2], p[1], p[0], p[3])
	}
	return filter.FromBytes(p[0], p[1], p[2], p[3])
}

// store writes c at (x, y), which must be inside the texture.
func (t *texture) store(x, y int, c filter.Color) {
	i := (y*t.desc.Width + x) * 4
	p := t.data[i : i+4 : i+4]
	r, g, b, a := c.Bytes()
	if t.desc.Format == gpucore.TextureFormatBGRA8Unorm {
		r, b = b, r
	}
	p[0], p[1], p[2], p[3] = r, g, b, a
}

// snapshot returns a read-only copy of t for use as a dispatch source.
func (t *texture) snapshot() *texture {
	return &texture{desc: t.desc, data: append([]byte(nil), t.data...)}
}

// sampler resolves integer texel positions against a texture using a
// sampler's address modes.
type sampler struct {
	desc gpucore.SamplerDesc
}

func newSampler(desc *gpucore.SamplerDesc) (*sampler, error) {
	if desc.MagFilter == gpucore.FilterModeLinear || desc.MinFilter == gpucore.FilterModeLinear {
		return nil, fmt.Errorf("%w: software backend supports nearest filtering only", gpucore.ErrInvalidDescriptor)
	}
	for _, m := range []gpucore.AddressMode{desc.AddressModeU, desc.AddressModeV, desc.AddressModeW} {
		switch m {
		case gpucore.AddressModeClampToZero, gpucore.AddressModeClampToEdge,
			gpucore.AddressModeRepeat, gpucore.AddressModeMirrorRepeat:
		default:
			return nil, fmt.Errorf("%w: address mode %v", gpucore.ErrInvalidDescriptor, m)
		}
	}
	return &sampler{desc: *desc}, nil
}

// bind returns a filter.Sampler over t.
func (s *sampler) bind(t *texture) filter.Sampler {
	w, h := t.desc.Width, t.desc.Height
	mu, mv := s.desc.AddressModeU, s.desc.AddressModeV
	return func(x, y int) filter.Color {
		x, okX := address(x, w, mu)
		y, okY := address(y, h, mv)
		if !okX || !okY {
			return filter.Transparent
		}
		return t.load(x, y)
	}
}

// address maps coordinate i onto [0, n) according to mode. It reports
// false when the texel lies outside the image under ClampToZero.
func address(i, n int, mode gpucore.AddressMode) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch mode {
	case gpucore.AddressModeClampToZero:
		return 0, false
	case gpucore.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	case gpucore.AddressModeMirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i, true
	default:
		return min(max(i, 0), n-1), true
	}
}
