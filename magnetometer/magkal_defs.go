// Package magkal fits hard-iron and soft-iron corrections to recorded
// magnetometer samples. The results plug straight into
// ahrs.MagneticCalibration.
package magkal

import (
	"errors"
	"math"

	"github.com/goflying/fusion/ahrs"
)

const (
	Small = 1e-9
	Big   = 1e9
)

var (
	// ErrTooFewSamples means the samples do not span every axis.
	ErrTooFewSamples = errors.New("magkal: too few samples")
	// ErrSingular means the least-squares system could not be solved.
	ErrSingular = errors.New("magkal: singular fit")
	// ErrNotEllipsoid means the best-fit quadric is not an ellipsoid.
	ErrNotEllipsoid = errors.New("magkal: fit is not an ellipsoid")
)

// Result holds a fitted calibration and how well it fits.
type Result struct {
	Calibration ahrs.MagneticCalibration
	Field       float64 // Calibrated field strength, sample units
	Residual    float64 // RMS deviation of calibrated samples from Field
}

// newResult converts a per-axis correction scale·(raw - center) into the
// softIron·raw - hardIron form and scores it against the samples.
func newResult(center, scale ahrs.Vector, field float64, samples []ahrs.Vector) Result {
	c := ahrs.MagneticCalibration{
		SoftIron: ahrs.Matrix{XX: scale.X, YY: scale.Y, ZZ: scale.Z},
		HardIron: center.Hadamard(scale),
	}
	return Result{
		Calibration: c,
		Field:       field,
		Residual:    Residual(c, field, samples),
	}
}

// Residual returns the RMS deviation of the calibrated magnitude of each
// sample from field.
func Residual(c ahrs.MagneticCalibration, field float64, samples []ahrs.Vector) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, m := range samples {
		d := c.Apply(m).Magnitude() - field
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// NormDiff calculates the norm of the diff of two 3-vectors to see how different they are.
func NormDiff(v1, v2 ahrs.Vector) float64 {
	return v1.Subtract(v2).Magnitude()
}
