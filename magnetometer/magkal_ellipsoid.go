// The Ellipsoid procedure fits an axis-aligned ellipsoid to the samples by least squares.
// It uses every sample, so it tolerates noise far better than Simple, but needs
// samples spread over the whole sphere of orientations.
package magkal

import (
	"fmt"
	"math"

	"github.com/goflying/fusion/ahrs"
	"github.com/skelterjohn/go.matrix"
)

// MinEllipsoidSamples is the fewest samples FitEllipsoid accepts.
const MinEllipsoidSamples = 9

// FitEllipsoid fits a·x² + b·y² + c·z² + d·x + e·y + f·z = 1 to the samples
// and returns the calibration that maps that ellipsoid onto a sphere.
func FitEllipsoid(samples []ahrs.Vector) (Result, error) {
	if len(samples) < MinEllipsoidSamples {
		return Result{}, ErrTooFewSamples
	}

	e := newExtent()
	for _, m := range samples {
		e.add(m)
	}
	if _, _, _, ok := e.fit(); !ok {
		return Result{}, ErrTooFewSamples
	}

	// Work in units of the largest sample to keep the normal equations conditioned
	var k float64
	for _, m := range samples {
		k = math.Max(k, math.Max(math.Abs(m.X), math.Max(math.Abs(m.Y), math.Abs(m.Z))))
	}
	if !(k > Small) || math.IsInf(k, 0) {
		return Result{}, ErrTooFewSamples
	}

	n := len(samples)
	a := matrix.Zeros(n, 6)
	ones := make([]float64, n)
	for i, m := range samples {
		x, y, z := m.X/k, m.Y/k, m.Z/k
		a.Set(i, 0, x*x)
		a.Set(i, 1, y*y)
		a.Set(i, 2, z*z)
		a.Set(i, 3, x)
		a.Set(i, 4, y)
		a.Set(i, 5, z)
		ones[i] = 1
	}
	b := matrix.MakeDenseMatrix(ones, n, 1)

	at := a.Transpose()
	ata := matrix.Product(at, a)
	inv, err := ata.Inverse()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	p := matrix.Product(inv, matrix.Product(at, b))

	var (
		qa, qb, qc = p.Get(0, 0), p.Get(1, 0), p.Get(2, 0)
		qd, qe, qf = p.Get(3, 0), p.Get(4, 0), p.Get(5, 0)
	)
	if !(qa > Small && qb > Small && qc > Small) {
		return Result{}, ErrNotEllipsoid
	}
	g := 1 + qd*qd/(4*qa) + qe*qe/(4*qb) + qf*qf/(4*qc)
	if !(g > Small) {
		return Result{}, ErrNotEllipsoid
	}

	center := ahrs.Vector{X: -qd / (2 * qa), Y: -qe / (2 * qb), Z: -qf / (2 * qc)}.Scale(k)
	r := ahrs.Vector{X: math.Sqrt(g / qa), Y: math.Sqrt(g / qb), Z: math.Sqrt(g / qc)}.Scale(k)
	field := r.Sum() / 3
	scale := ahrs.Vector{X: field / r.X, Y: field / r.Y, Z: field / r.Z}

	return newResult(center, scale, field, samples), nil
}
