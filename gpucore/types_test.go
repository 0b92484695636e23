package gpucore

import (
	"errors"
	"testing"
)

func TestTextureFormatBytesPerPixel(t *testing.T) {
	tests := []struct {
		format TextureFormat
		want   int
	}{
		{TextureFormatRGBA8Unorm, 4},
		{TextureFormatBGRA8Unorm, 4},
		{TextureFormatRGBA32Float, 16},
		{TextureFormat(99), 0},
	}
	for _, tt := range tests {
		if got := tt.format.BytesPerPixel(); got != tt.want {
			t.Errorf("%v.BytesPerPixel() = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestTextureDescValidate(t *testing.T) {
	tests := []struct {
		name string
		desc TextureDesc
		want error
	}{
		{"valid", TextureDesc{Width: 4, Height: 4, Format: TextureFormatRGBA8Unorm, Usage: TextureUsageKernelIO}, nil},
		{"zero width", TextureDesc{Width: 0, Height: 4, Format: TextureFormatRGBA8Unorm, Usage: TextureUsageKernelIO}, ErrInvalidDescriptor},
		{"negative height", TextureDesc{Width: 4, Height: -1, Format: TextureFormatRGBA8Unorm, Usage: TextureUsageKernelIO}, ErrInvalidDescriptor},
		{"unknown format", TextureDesc{Width: 4, Height: 4, Format: 0, Usage: TextureUsageKernelIO}, ErrUnsupportedFormat},
		{"no usage", TextureDesc{Width: 4, Height: 4, Format: TextureFormatRGBA8Unorm}, ErrInvalidDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTextureMatchingDescriptor(t *testing.T) {
	tex := Texture{
		ID: 7,
		Desc: TextureDesc{
			Label:  "photo",
			Width:  640,
			Height: 480,
			Format: TextureFormatBGRA8Unorm,
			Usage:  TextureUsageKernelIO,
		},
	}

	d := tex.MatchingDescriptor()
	if d.Width != tex.Width() || d.Height != tex.Height() || d.Format != tex.Format() || d.Usage != tex.Desc.Usage {
		t.Errorf("MatchingDescriptor() = %+v, want size/format/usage of %+v", d, tex.Desc)
	}
	if d.Label == tex.Desc.Label {
		t.Errorf("MatchingDescriptor().Label = %q, want a distinct label", d.Label)
	}
	if tex.Desc.Label != "photo" {
		t.Error("MatchingDescriptor must not modify the source descriptor")
	}
}

func TestTextureIsValid(t *testing.T) {
	if (Texture{}).IsValid() {
		t.Error("zero Texture should be invalid")
	}
	if !(Texture{ID: 1}).IsValid() {
		t.Error("Texture with ID 1 should be valid")
	}
}

func TestGrid(t *testing.T) {
	tests := []struct {
		g     Grid
		inv   uint64
		empty bool
	}{
		{Grid{4, 7, 1}, 28, false},
		{Grid{0, 0, 1}, 0, true},
		{Grid{16, 16, 1}, 256, false},
		{Grid{3, 0, 1}, 0, true},
	}
	for _, tt := range tests {
		if got := tt.g.Invocations(); got != tt.inv {
			t.Errorf("%+v.Invocations() = %d, want %d", tt.g, got, tt.inv)
		}
		if got := tt.g.IsEmpty(); got != tt.empty {
			t.Errorf("%+v.IsEmpty() = %v, want %v", tt.g, got, tt.empty)
		}
	}
}

func TestBindGroupLayoutDescEntry(t *testing.T) {
	d := &BindGroupLayoutDesc{Entries: []BindGroupLayoutEntry{
		{Binding: BindingSource, Type: BindingTypeSampledTexture},
		{Binding: BindingParams, Type: BindingTypeUniformBuffer, MinBindingSize: 32},
	}}
	e, ok := d.Entry(BindingParams)
	if !ok || e.MinBindingSize != 32 {
		t.Errorf("Entry(BindingParams) = %+v, %v", e, ok)
	}
	if _, ok := d.Entry(BindingSampler); ok {
		t.Error("Entry(BindingSampler) should be absent")
	}
}

func TestAddressModeString(t *testing.T) {
	if got := AddressModeClampToZero.String(); got != "ClampToZero" {
		t.Errorf("String() = %q", got)
	}
	if got := AddressMode(42).String(); got != "AddressMode(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestSamplerDescClampsToZero(t *testing.T) {
	edge := SamplerDesc{
		AddressModeU: AddressModeClampToEdge,
		AddressModeV: AddressModeClampToEdge,
		AddressModeW: AddressModeClampToEdge,
	}
	if edge.ClampsToZero() {
		t.Error("ClampToEdge sampler reports ClampsToZero")
	}
	zero := edge
	zero.AddressModeV = AddressModeClampToZero
	if !zero.ClampsToZero() {
		t.Error("sampler with a ClampToZero axis does not report ClampsToZero")
	}
}
