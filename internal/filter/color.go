package filter

// Rec. 709 luma coefficients.
const (
	LumaR = 0.2126
	LumaG = 0.7152
	LumaB = 0.0722
)

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Transparent is transparent black.
var Transparent = Color{}

// Luma returns the Rec. 709 luma of c's color channels.
func (c Color) Luma() float32 {
	return LumaR*c.R + LumaG*c.G + LumaB*c.B
}

// Clamp returns c with every component clamped to [0, 1].
func (c Color) Clamp() Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: clamp01(c.A)}
}

// FromBytes converts 8-bit unorm channels to a Color.
func FromBytes(r, g, b, a uint8) Color {
	return Color{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255, A: float32(a) / 255}
}

// Bytes converts c to 8-bit unorm channels, clamping and rounding to
// nearest.
func (c Color) Bytes() (r, g, b, a uint8) {
	return unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)
}

// Sampler returns the source color at integer pixel (x, y). Positions
// outside the source are resolved by the sampler's address mode.
type Sampler func(x, y int) Color

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func unorm8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
