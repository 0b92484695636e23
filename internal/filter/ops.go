package filter

import "math"

// Saturate adjusts the saturation of c by factor and clamps the color
// channels. Alpha is kept.
func Saturate(c Color, factor float32) Color {
	m := SaturationMatrix(factor)
	out := m.Transform(c).Clamp()
	out.A = c.A
	return out
}

// ThresholdToZero returns c with its color channels zeroed when its luma is
// at or below threshold. Alpha is kept.
func ThresholdToZero(c Color, threshold float32) Color {
	if c.Luma() <= threshold {
		return Color{A: c.A}
	}
	return c
}

// Sobel returns the Sobel gradient magnitude of luma around (x, y), scaled
// by scale and clamped, as a gray color with the alpha of the center pixel.
func Sobel(s Sampler, x, y int, scale float32) Color {
	l := func(dx, dy int) float32 { return s(x+dx, y+dy).Luma() }

	tl, t, tr := l(-1, -1), l(0, -1), l(1, -1)
	ml, mr := l(-1, 0), l(1, 0)
	bl, b, br := l(-1, 1), l(0, 1), l(1, 1)

	gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
	gy := (bl + 2*b + br) - (tl + 2*t + tr)
	m := clamp01(float32(math.Sqrt(float64(gx*gx+gy*gy))) * scale)
	return Color{R: m, G: m, B: m, A: s(x, y).A}
}

// Laplacian returns the 4-neighbour Laplacian of each color channel around
// (x, y), scaled by scale and clamped. Alpha is the center pixel's.
func Laplacian(s Sampler, x, y int, scale float32) Color {
	c := s(x, y)
	n, w, e, so := s(x, y-1), s(x-1, y), s(x+1, y), s(x, y+1)
	return Color{
		R: clamp01((n.R + w.R + e.R + so.R - 4*c.R) * scale),
		G: clamp01((n.G + w.G + e.G + so.G - 4*c.G) * scale),
		B: clamp01((n.B + w.B + e.B + so.B - 4*c.B) * scale),
		A: c.A,
	}
}
