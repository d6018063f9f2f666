// The Simple procedure bases the calibration on the measured min/max value along each axis.
// It can provide a useful calibration but requires careful manual manipulation.
package magkal

import (
	"log"
	"math"

	"github.com/goflying/fusion/ahrs"
)

type extent struct {
	min, max ahrs.Vector
}

func newExtent() extent {
	return extent{
		min: ahrs.Vector{X: Big, Y: Big, Z: Big},
		max: ahrs.Vector{X: -Big, Y: -Big, Z: -Big},
	}
}

// add widens the extent to include m and reports whether it grew.
func (e *extent) add(m ahrs.Vector) (grew bool) {
	if math.IsNaN(m.X) || math.IsNaN(m.Y) || math.IsNaN(m.Z) {
		return false
	}
	lo := ahrs.Vector{X: math.Min(e.min.X, m.X), Y: math.Min(e.min.Y, m.Y), Z: math.Min(e.min.Z, m.Z)}
	hi := ahrs.Vector{X: math.Max(e.max.X, m.X), Y: math.Max(e.max.Y, m.Y), Z: math.Max(e.max.Z, m.Z)}
	grew = lo != e.min || hi != e.max
	e.min, e.max = lo, hi
	return grew
}

// fit returns the center of the extent, the per-axis scale that makes it
// a sphere, and the radius of that sphere.
func (e extent) fit() (center, scale ahrs.Vector, field float64, ok bool) {
	r := e.max.Subtract(e.min).Scale(0.5)
	if !(r.X > Small && r.Y > Small && r.Z > Small) {
		return center, scale, 0, false
	}
	field = r.Sum() / 3
	center = e.max.Add(e.min).Scale(0.5)
	scale = ahrs.Vector{X: field / r.X, Y: field / r.Y, Z: field / r.Z}
	return center, scale, field, true
}

// FitSimple computes a calibration from the extreme values along each axis.
func FitSimple(samples []ahrs.Vector) (Result, error) {
	e := newExtent()
	for _, m := range samples {
		e.add(m)
	}
	center, scale, field, ok := e.fit()
	if !ok {
		return Result{}, ErrTooFewSamples
	}
	return newResult(center, scale, field, samples), nil
}

// ComputeSimple refines a min/max calibration as samples arrive on cIn and
// sends each improved calibration on cOut. The Residual of these results
// is not computed. cOut is closed once cIn is closed.
func ComputeSimple(cIn <-chan ahrs.Vector, cOut chan<- Result) {
	e := newExtent()

	log.Print("MagKal: Starting Simple MagKal")
	for m := range cIn {
		if !e.add(m) {
			continue
		}
		center, scale, field, ok := e.fit()
		if !ok {
			continue
		}
		r := newResult(center, scale, field, nil)
		log.Printf("MagKal: Updating soft iron %1.4f %1.4f %1.4f, hard iron %1.4f %1.4f %1.4f\n",
			scale.X, scale.Y, scale.Z, r.Calibration.HardIron.X, r.Calibration.HardIron.Y, r.Calibration.HardIron.Z)
		cOut <- r
	}

	close(cOut)
}
