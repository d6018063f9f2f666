package ahrs

import "math"

// Quaternion represents a rotation from the sensor frame to the earth frame.
// W is the scalar part.
type Quaternion struct {
	W, X, Y, Z float64
}

// Euler holds Tait-Bryan (ZYX) angles in degrees.
type Euler struct {
	Roll, Pitch, Yaw float64
}

// IdentityQuaternion returns the quaternion of no rotation.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// Add returns the component-wise sum q + p.
func (q Quaternion) Add(p Quaternion) Quaternion {
	return Quaternion{q.W + p.W, q.X + p.X, q.Y + p.Y, q.Z + p.Z}
}

// Scale returns q multiplied by the scalar k.
func (q Quaternion) Scale(k float64) Quaternion {
	return Quaternion{q.W * k, q.X * k, q.Y * k, q.Z * k}
}

// Multiply returns the Hamilton product q ⊗ p.
func (q Quaternion) Multiply(p Quaternion) Quaternion {
	return Quaternion{
		W: q.W*p.W - q.X*p.X - q.Y*p.Y - q.Z*p.Z,
		X: q.W*p.X + q.X*p.W + q.Y*p.Z - q.Z*p.Y,
		Y: q.W*p.Y - q.X*p.Z + q.Y*p.W + q.Z*p.X,
		Z: q.W*p.Z + q.X*p.Y - q.Y*p.X + q.Z*p.W,
	}
}

// MultiplyVector returns q ⊗ (0, v).
func (q Quaternion) MultiplyVector(v Vector) Quaternion {
	return Quaternion{
		W: -q.X*v.X - q.Y*v.Y - q.Z*v.Z,
		X: q.W*v.X + q.Y*v.Z - q.Z*v.Y,
		Y: q.W*v.Y - q.X*v.Z + q.Z*v.X,
		Z: q.W*v.Z + q.X*v.Y - q.Y*v.X,
	}
}

// Conjugate returns q*.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{q.W, -q.X, -q.Y, -q.Z}
}

// Norm returns |q|.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns q scaled to unit norm.
// A quaternion too small (or not finite) to normalize yields the identity.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if !(n > Small) || math.IsInf(n, 0) {
		return IdentityQuaternion()
	}
	return q.Scale(1 / n)
}

// RotationMatrix returns the matrix R such that R·v rotates v from the
// sensor frame into the earth frame.
func (q Quaternion) RotationMatrix() Matrix {
	var (
		ww = q.W * q.W
		wx = q.W * q.X
		wy = q.W * q.Y
		wz = q.W * q.Z
		xx = q.X * q.X
		xy = q.X * q.Y
		xz = q.X * q.Z
		yy = q.Y * q.Y
		yz = q.Y * q.Z
		zz = q.Z * q.Z
	)
	return Matrix{
		2 * (ww - 0.5 + xx), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 2 * (ww - 0.5 + yy), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 2 * (ww - 0.5 + zz),
	}
}

// Rotate returns the vector part of q ⊗ (0, v) ⊗ q*.
func (q Quaternion) Rotate(v Vector) Vector {
	return q.RotationMatrix().MultiplyVector(v)
}

// QuaternionToEuler returns the ZYX Euler angles of q, in degrees.
// The pitch term is clamped so that ±90° pitch stays finite.
func QuaternionToEuler(q Quaternion) Euler {
	halfMinusYY := 0.5 - q.Y*q.Y
	return Euler{
		Roll:  math.Atan2(q.W*q.X+q.Y*q.Z, halfMinusYY-q.X*q.X) / Deg,
		Pitch: asinSafe(2*(q.W*q.Y-q.Z*q.X)) / Deg,
		Yaw:   math.Atan2(q.W*q.Z+q.X*q.Y, halfMinusYY-q.Z*q.Z) / Deg,
	}
}

// EulerToQuaternion calculates the rotation quaternion corresponding to
// the ZYX Euler angles e, in degrees.
func EulerToQuaternion(e Euler) Quaternion {
	cr := math.Cos(e.Roll * Deg / 2)
	sr := math.Sin(e.Roll * Deg / 2)
	cp := math.Cos(e.Pitch * Deg / 2)
	sp := math.Sin(e.Pitch * Deg / 2)
	cy := math.Cos(e.Yaw * Deg / 2)
	sy := math.Sin(e.Yaw * Deg / 2)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// QuaternionToAxisAngle returns the rotation axis and angle (degrees, in
// [0, 180]) of q. A rotation too small to define an axis returns the
// X axis and a zero angle.
func QuaternionToAxisAngle(q Quaternion) (axis Vector, angle float64) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := math.Sqrt(math.Max(0, 1-q.W*q.W))
	if s < Small {
		return Vector{X: 1}, 0
	}
	axis = Vector{q.X / s, q.Y / s, q.Z / s}
	return axis, 2 * math.Acos(math.Min(1, q.W)) / Deg
}

// AxisAngleToQuaternion returns the quaternion rotating by angle degrees
// about axis. A degenerate axis yields the identity.
func AxisAngleToQuaternion(axis Vector, angle float64) Quaternion {
	u := axis.Normalize()
	if u.IsZero() {
		return IdentityQuaternion()
	}
	s := math.Sin(angle * Deg / 2)
	return Quaternion{math.Cos(angle * Deg / 2), u.X * s, u.Y * s, u.Z * s}
}

// asinSafe is math.Asin with its argument clamped to [-1, 1].
func asinSafe(x float64) float64 {
	if x <= -1 {
		return -Pi / 2
	}
	if x >= 1 {
		return Pi / 2
	}
	return math.Asin(x)
}
