package ahrs

import "math"

// Vector is a 3-vector: an angular rate (°/s), an acceleration (G),
// a magnetic field (arbitrary units) or a direction.
type Vector struct {
	X, Y, Z float64
}

// Add returns v + u.
func (v Vector) Add(u Vector) Vector {
	return Vector{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

// Subtract returns v - u.
func (v Vector) Subtract(u Vector) Vector {
	return Vector{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

// Scale returns v multiplied by the scalar k.
func (v Vector) Scale(k float64) Vector {
	return Vector{v.X * k, v.Y * k, v.Z * k}
}

// Hadamard returns the element-wise product of v and u.
func (v Vector) Hadamard(u Vector) Vector {
	return Vector{v.X * u.X, v.Y * u.Y, v.Z * u.Z}
}

// Cross returns the cross product v × u.
func (v Vector) Cross(u Vector) Vector {
	return Vector{
		v.Y*u.Z - v.Z*u.Y,
		v.Z*u.X - v.X*u.Z,
		v.X*u.Y - v.Y*u.X,
	}
}

// Dot returns the dot product of v and u.
func (v Vector) Dot(u Vector) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Sum returns the sum of the components.
func (v Vector) Sum() float64 {
	return v.X + v.Y + v.Z
}

// MagnitudeSquared returns |v|².
func (v Vector) MagnitudeSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Magnitude returns |v|.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.MagnitudeSquared())
}

// Normalize returns v scaled to unit magnitude.
// A vector too small (or not finite) to normalize yields the zero vector.
func (v Vector) Normalize() Vector {
	m := v.Magnitude()
	if !(m > Small) || math.IsInf(m, 0) {
		return Vector{}
	}
	return v.Scale(1 / m)
}

// IsZero reports whether all components are exactly zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// maxAbs returns the largest absolute component.
func (v Vector) maxAbs() float64 {
	return math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
}
