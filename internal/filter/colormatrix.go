package filter

// ColorMatrix is a 4x5 color transformation matrix:
//
//	[R']   [a00 a01 a02 a03 a04]   [R]
//	[G'] = [a10 a11 a12 a13 a14] * [G]
//	[B']   [a20 a21 a22 a23 a24]   [B]
//	[A']   [a30 a31 a32 a33 a34]   [A]
//	                               [1]
//
// The fifth column is a bias in [0, 1] units. The matrix operates on
// straight-alpha colors.
type ColorMatrix [20]float32

// SaturationMatrix returns the matrix that blends each color between its
// luma (factor 0) and itself (factor 1). Factors above 1 oversaturate.
func SaturationMatrix(factor float32) ColorMatrix {
	inv := 1 - factor
	return ColorMatrix{
		LumaR*inv + factor, LumaG * inv, LumaB * inv, 0, 0,
		LumaR * inv, LumaG*inv + factor, LumaB * inv, 0, 0,
		LumaR * inv, LumaG * inv, LumaB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Transform applies m to c. The result is not clamped.
func (m *ColorMatrix) Transform(c Color) Color {
	return Color{
		R: m[0]*c.R + m[1]*c.G + m[2]*c.B + m[3]*c.A + m[4],
		G: m[5]*c.R + m[6]*c.G + m[7]*c.B + m[8]*c.A + m[9],
		B: m[10]*c.R + m[11]*c.G + m[12]*c.B + m[13]*c.A + m[14],
		A: m[15]*c.R + m[16]*c.G + m[17]*c.B + m[18]*c.A + m[19],
	}
}
