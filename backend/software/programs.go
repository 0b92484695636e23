package software

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/filter"
	"github.com/gogpu/imgkernel/shaders"
)

// params is the decoded 32-byte parameter block of a unary program.
// Must match Params in shaders/wgsl/common.wgsl.
type params struct {
	offsetX, offsetY int32
	clipOrigin       [2]uint32
	clipMax          [2]uint32
	strength         float32
}

func decodeParams(b []byte) (params, error) {
	if len(b) < shaders.ParamsSize {
		return params{}, fmt.Errorf("%w: params are %d bytes, want %d",
			gpucore.ErrInvalidDescriptor, len(b), shaders.ParamsSize)
	}
	le := binary.LittleEndian
	return params{
		offsetX:    int32(le.Uint32(b[0:4])),
		offsetY:    int32(le.Uint32(b[4:8])),
		clipOrigin: [2]uint32{le.Uint32(b[8:12]), le.Uint32(b[12:16])},
		clipMax:    [2]uint32{le.Uint32(b[16:20]), le.Uint32(b[20:24])},
		strength:   math.Float32frombits(le.Uint32(b[24:28])),
	}, nil
}

// program computes the destination color for one invocation. (x, y) is
// the source position, already offset.
type program func(src filter.Sampler, x, y int, strength float32) filter.Color

// programs maps entry points to their CPU ports.
var programs = map[string]program{
	shaders.Saturation: func(src filter.Sampler, x, y int, s float32) filter.Color {
		return filter.Saturate(src(x, y), s)
	},
	shaders.ThresholdToZero: func(src filter.Sampler, x, y int, s float32) filter.Color {
		return filter.ThresholdToZero(src(x, y), s)
	},
	shaders.Sobel:     filter.Sobel,
	shaders.Laplacian: filter.Laplacian,
}
