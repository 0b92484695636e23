package kernel

import (
	"fmt"
	"math"

	"github.com/gogpu/imgkernel/gpucore"
)

// Offset translates source reads relative to destination pixels: the
// destination pixel (x, y) reads the source at (x+X, y+Y). Dispatches
// carry the offset as int32; larger values saturate.
type Offset struct {
	X, Y int
}

// Origin is the top-left corner of a Region.
type Origin struct {
	X, Y int
}

// Size is the extent of a Region.
type Size struct {
	Width, Height int
}

// Region is a rectangle of pixels. The rectangle is half-open: it covers
// [X, X+Width) × [Y, Y+Height).
type Region struct {
	Origin Origin
	Size   Size
}

// NoClip is the default clip rectangle. It covers every destination a
// texture can have.
var NoClip = Region{Size: Size{Width: math.MaxInt32, Height: math.MaxInt32}}

// Rect returns the region at (x, y) with size (w, h).
func Rect(x, y, w, h int) Region {
	return Region{Origin: Origin{X: x, Y: y}, Size: Size{Width: w, Height: h}}
}

// Max returns the exclusive bottom-right corner.
func (r Region) Max() Origin {
	return Origin{X: satAdd(r.Origin.X, r.Size.Width), Y: satAdd(r.Origin.Y, r.Size.Height)}
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.Size.Width <= 0 || r.Size.Height <= 0
}

// Contains reports whether s lies entirely inside r. An empty s is
// contained in any r.
func (r Region) Contains(s Region) bool {
	if s.Empty() {
		return true
	}
	rm, sm := r.Max(), s.Max()
	return s.Origin.X >= r.Origin.X && s.Origin.Y >= r.Origin.Y && sm.X <= rm.X && sm.Y <= rm.Y
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)+(%dx%d)", r.Origin.X, r.Origin.Y, r.Size.Width, r.Size.Height)
}

// ClipRegion intersects r with [0,width) × [0,height).
//
// The result is always contained in the destination. When r does not
// intersect it the result is empty, with its origin clamped into the
// destination.
func ClipRegion(r Region, width, height int) Region {
	x0, x1 := clipAxis(r.Origin.X, r.Size.Width, width)
	y0, y1 := clipAxis(r.Origin.Y, r.Size.Height, height)
	return Rect(x0, y0, x1-x0, y1-y0)
}

func clipAxis(origin, length, limit int) (lo, hi int) {
	limit = max(limit, 0)
	lo = min(max(origin, 0), limit)
	if length <= 0 {
		return lo, lo
	}
	hi = min(max(satAdd(origin, length), 0), limit)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// satAdd returns a+b, saturating at the int range.
func satAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}

// ThreadsPerGroup is the fixed work-group shape of every kernel.
var ThreadsPerGroup = gpucore.Grid{X: 16, Y: 16, Z: 1}

// Threadgroups returns the number of work-groups of shape tpg needed to
// cover r: (ceil(w/tpg.X), ceil(h/tpg.Y), 1). An empty region yields
// (0, 0, 1).
func Threadgroups(r Region, tpg gpucore.Grid) gpucore.Grid {
	if r.Empty() {
		return gpucore.Grid{X: 0, Y: 0, Z: 1}
	}
	return gpucore.Grid{
		X: ceilDiv(uint32(r.Size.Width), tpg.X),
		Y: ceilDiv(uint32(r.Size.Height), tpg.Y),
		Z: 1,
	}
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}
