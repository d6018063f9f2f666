package ahrs

// Matrix is a row-major 3x3 matrix, used for misalignment and
// soft-iron corrections. It is never checked for invertibility.
type Matrix struct {
	XX, XY, XZ float64
	YX, YY, YZ float64
	ZX, ZY, ZZ float64
}

// IdentityMatrix returns the 3x3 identity.
func IdentityMatrix() Matrix {
	return Matrix{
		XX: 1,
		YY: 1,
		ZZ: 1,
	}
}

// MultiplyVector returns m·v.
func (m Matrix) MultiplyVector(v Vector) Vector {
	return Vector{
		X: m.XX*v.X + m.XY*v.Y + m.XZ*v.Z,
		Y: m.YX*v.X + m.YY*v.Y + m.YZ*v.Z,
		Z: m.ZX*v.X + m.ZY*v.Y + m.ZZ*v.Z,
	}
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	return Matrix{
		m.XX, m.YX, m.ZX,
		m.XY, m.YY, m.ZY,
		m.XZ, m.YZ, m.ZZ,
	}
}

// Rows returns the matrix as a nested array, row by row.
func (m Matrix) Rows() [3][3]float64 {
	return [3][3]float64{
		{m.XX, m.XY, m.XZ},
		{m.YX, m.YY, m.YZ},
		{m.ZX, m.ZY, m.ZZ},
	}
}

// MatrixFromRows builds a Matrix from a nested array, row by row.
func MatrixFromRows(r [3][3]float64) Matrix {
	return Matrix{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	}
}
