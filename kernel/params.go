package kernel

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/imgkernel/shaders"
)

// Params is the per-dispatch parameter block read by every kernel program.
// Must match Params in shaders/wgsl/common.wgsl.
//
// Layout (little-endian, 32 bytes):
//
//	 0  OffsetX      int32
//	 4  OffsetY      int32
//	 8  ClipOriginX  uint32
//	12  ClipOriginY  uint32
//	16  ClipMaxX     uint32  exclusive
//	20  ClipMaxY     uint32  exclusive
//	24  Strength     float32
//	28  Padding      float32 always 0
type Params struct {
	OffsetX     int32
	OffsetY     int32
	ClipOriginX uint32
	ClipOriginY uint32
	ClipMaxX    uint32
	ClipMaxY    uint32
	Strength    float32
	Padding     float32
}

// ParamsSize is the encoded size of Params.
const ParamsSize = shaders.ParamsSize

// NewParams builds the parameter block for a dispatch over clip, which
// must already be clipped to the destination. Offset components are
// saturated to the int32 range.
func NewParams(offset Offset, clip Region, strength float32) Params {
	maxPt := clip.Max()
	return Params{
		OffsetX:     clampInt32(offset.X),
		OffsetY:     clampInt32(offset.Y),
		ClipOriginX: uint32(clip.Origin.X),
		ClipOriginY: uint32(clip.Origin.Y),
		ClipMaxX:    uint32(maxPt.X),
		ClipMaxY:    uint32(maxPt.Y),
		Strength:    strength,
	}
}

func clampInt32(v int) int32 {
	return int32(max(math.MinInt32, min(v, math.MaxInt32)))
}

// Bytes serializes p in its GPU layout.
func (p Params) Bytes() []byte {
	buf := make([]byte, ParamsSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.OffsetX))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.OffsetY))
	binary.LittleEndian.PutUint32(buf[8:12], p.ClipOriginX)
	binary.LittleEndian.PutUint32(buf[12:16], p.ClipOriginY)
	binary.LittleEndian.PutUint32(buf[16:20], p.ClipMaxX)
	binary.LittleEndian.PutUint32(buf[20:24], p.ClipMaxY)
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(p.Strength))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(p.Padding))
	return buf
}
