package kernel

import (
	"fmt"
	"strings"

	"github.com/gogpu/imgkernel/gpucore"
)

// EdgeMode controls what a kernel reads for source pixels outside the
// source image.
type EdgeMode uint8

const (
	// EdgeModeZero reads transparent black outside the image. This is the
	// default.
	EdgeModeZero EdgeMode = iota

	// EdgeModeClamp reads the nearest edge pixel.
	EdgeModeClamp
)

func (m EdgeMode) String() string {
	switch m {
	case EdgeModeZero:
		return "zero"
	case EdgeModeClamp:
		return "clamp"
	default:
		return fmt.Sprintf("EdgeMode(%d)", uint8(m))
	}
}

// ParseEdgeMode parses "zero" or "clamp", case-insensitively.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch strings.ToLower(s) {
	case "zero":
		return EdgeModeZero, nil
	case "clamp":
		return EdgeModeClamp, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidEdgeMode, s)
	}
}

func (m EdgeMode) valid() bool {
	return m == EdgeModeZero || m == EdgeModeClamp
}

// samplerDesc returns the sampler configuration for m: clamp-to-zero
// addressing for EdgeModeZero and clamp-to-edge otherwise, nearest
// filtering, unnormalized coordinates.
func (m EdgeMode) samplerDesc(label string) gpucore.SamplerDesc {
	address := gpucore.AddressModeClampToEdge
	if m == EdgeModeZero {
		address = gpucore.AddressModeClampToZero
	}
	return gpucore.SamplerDesc{
		Label:                 label + "_sampler_" + m.String(),
		AddressModeU:          address,
		AddressModeV:          address,
		AddressModeW:          address,
		MagFilter:             gpucore.FilterModeNearest,
		MinFilter:             gpucore.FilterModeNearest,
		NormalizedCoordinates: false,
	}
}
