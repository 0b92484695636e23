package shaders

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/imgkernel/gpucore"
)

// Embedded WGSL sources. Each program is compiled as common.wgsl followed
// by the program file.

//go:embed wgsl/common.wgsl
var commonSource string

//go:embed wgsl/image_saturation.wgsl
var saturationSource string

//go:embed wgsl/image_threshold_to_zero.wgsl
var thresholdToZeroSource string

//go:embed wgsl/image_sobel.wgsl
var sobelSource string

//go:embed wgsl/image_laplacian.wgsl
var laplacianSource string

// Program names.
const (
	Saturation      = "image_saturation"
	ThresholdToZero = "image_threshold_to_zero"
	Sobel           = "image_sobel"
	Laplacian       = "image_laplacian"
)

// ParamsSize is the size in bytes of the Params uniform shared by all
// programs. Must match Params in common.wgsl.
const ParamsSize = 32

// WorkgroupSize is the @workgroup_size of every program.
var WorkgroupSize = gpucore.Grid{X: 16, Y: 16, Z: 1}

// ErrUnknownProgram is returned by Lookup for names with no embedded program.
var ErrUnknownProgram = errors.New("shaders: unknown program")

// Program is a WGSL compute program.
type Program struct {
	// Name is the program name. It is also the entry point.
	Name string

	// Source is the complete WGSL module.
	Source string

	// WorkgroupSize is the entry point's declared work-group shape.
	WorkgroupSize gpucore.Grid
}

// EntryPoint returns the name of the compute entry point.
func (p *Program) EntryPoint() string { return p.Name }

var programs = map[string]*Program{
	Saturation:      newProgram(Saturation, saturationSource),
	ThresholdToZero: newProgram(ThresholdToZero, thresholdToZeroSource),
	Sobel:           newProgram(Sobel, sobelSource),
	Laplacian:       newProgram(Laplacian, laplacianSource),
}

func newProgram(name, body string) *Program {
	return &Program{
		Name:          name,
		Source:        commonSource + "\n" + body,
		WorkgroupSize: WorkgroupSize,
	}
}

// Lookup returns the program registered under name.
func Lookup(name string) (*Program, error) {
	p, ok := programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	return p, nil
}

// Names returns the names of all programs, sorted.
func Names() []string {
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const (
	zeroEdgeOff = "const ZERO_EDGE: bool = false;"
	zeroEdgeOn  = "const ZERO_EDGE: bool = true;"
)

// ZeroEdgeVariant returns source with the ZERO_EDGE switch of common.wgsl
// turned on, so that out-of-bounds reads return zero whatever the sampler's
// address mode. ok is false when source does not carry the switch.
func ZeroEdgeVariant(source string) (variant string, ok bool) {
	if !strings.Contains(source, zeroEdgeOff) {
		return "", false
	}
	return strings.Replace(source, zeroEdgeOff, zeroEdgeOn, 1), true
}

// UnaryLayout returns the bind group layout shared by all programs.
func UnaryLayout(label string) *gpucore.BindGroupLayoutDesc {
	return &gpucore.BindGroupLayoutDesc{
		Label: label,
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: gpucore.BindingSource, Type: gpucore.BindingTypeSampledTexture},
			{Binding: gpucore.BindingDestination, Type: gpucore.BindingTypeStorageTexture, StorageFormat: gpucore.TextureFormatRGBA8Unorm},
			{Binding: gpucore.BindingSampler, Type: gpucore.BindingTypeSampler},
			{Binding: gpucore.BindingParams, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: ParamsSize},
		},
	}
}
