package magkal

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/goflying/fusion/ahrs"
)

const eps = 1e-6

var (
	stretch = ahrs.Vector{X: 1.2, Y: 0.9, Z: 1.05}
	offset  = ahrs.Vector{X: 12, Y: -7, Z: 3}
)

const radius = 45

// distortedSphere returns samples of a field of strength radius seen
// through a hard/soft-iron distortion, including the six axis extremes.
func distortedSphere(n int) (samples []ahrs.Vector) {
	r := rand.New(rand.NewSource(1))
	dirs := []ahrs.Vector{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}}
	for len(dirs) < n {
		dirs = append(dirs, ahrs.Vector{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}.Normalize())
	}
	for _, u := range dirs {
		samples = append(samples, u.Scale(radius).Hadamard(stretch).Add(offset))
	}
	return samples
}

func checkResult(t *testing.T, name string, res Result, samples []ahrs.Vector) {
	t.Helper()
	wantField := radius * stretch.Sum() / 3
	if math.Abs(res.Field-wantField) > eps {
		t.Errorf("%s: field %v, expected %v", name, res.Field, wantField)
	}
	if res.Residual > eps {
		t.Errorf("%s: residual %v", name, res.Residual)
	}
	// Calibrated samples lie on a sphere about the origin
	for _, m := range samples {
		if d := res.Calibration.Apply(m).Magnitude() - res.Field; math.Abs(d) > eps {
			t.Fatalf("%s: %v calibrated to magnitude %v", name, m, res.Field+d)
		}
	}
	soft := res.Calibration.SoftIron
	want := ahrs.Vector{X: wantField / (radius * stretch.X), Y: wantField / (radius * stretch.Y), Z: wantField / (radius * stretch.Z)}
	if NormDiff(ahrs.Vector{X: soft.XX, Y: soft.YY, Z: soft.ZZ}, want) > eps {
		t.Errorf("%s: soft iron %+v, expected diagonal %v", name, soft, want)
	}
	if NormDiff(res.Calibration.HardIron, offset.Hadamard(want)) > eps {
		t.Errorf("%s: hard iron %v, expected %v", name, res.Calibration.HardIron, offset.Hadamard(want))
	}
}

func TestFitSimple(t *testing.T) {
	samples := distortedSphere(200)
	res, err := FitSimple(samples)
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, "simple", res, samples)
}

func TestFitEllipsoid(t *testing.T) {
	samples := distortedSphere(500)
	res, err := FitEllipsoid(samples)
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, "ellipsoid", res, samples)
}

func TestFitEllipsoidNoisy(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	samples := distortedSphere(2000)
	for i := range samples {
		samples[i] = samples[i].Add(ahrs.Vector{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}.Scale(0.5))
	}
	res, err := FitEllipsoid(samples)
	if err != nil {
		t.Fatal(err)
	}
	if res.Residual > 1 {
		t.Errorf("residual %v with 0.5 unit noise", res.Residual)
	}
	uncalibrated := Residual(ahrs.IdentityMagneticCalibration(), res.Field, samples)
	if res.Residual > uncalibrated/5 {
		t.Errorf("calibration barely helped: %v vs %v", res.Residual, uncalibrated)
	}
}

func TestFitErrors(t *testing.T) {
	if _, err := FitSimple(nil); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("FitSimple(nil): %v", err)
	}
	if _, err := FitEllipsoid(distortedSphere(6)); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("FitEllipsoid with 6 samples: %v", err)
	}

	// All samples in the z=5 plane: z and z² cannot be told apart from the constant
	var flat []ahrs.Vector
	for i := 0; i < 50; i++ {
		s, c := math.Sincos(float64(i) * 0.3)
		flat = append(flat, ahrs.Vector{X: 40 * c, Y: 40 * s, Z: 5})
	}
	if _, err := FitSimple(flat); !errors.Is(err, ErrTooFewSamples) {
		t.Errorf("FitSimple on a plane: %v", err)
	}
	if _, err := FitEllipsoid(flat); err == nil {
		t.Error("FitEllipsoid on a plane should fail")
	}
}

func TestComputeSimple(t *testing.T) {
	samples := distortedSphere(200)
	cIn := make(chan ahrs.Vector)
	cOut := make(chan Result)

	go ComputeSimple(cIn, cOut)
	go func() {
		for _, m := range samples {
			cIn <- m
		}
		close(cIn)
	}()

	var (
		last Result
		n    int
	)
	for r := range cOut {
		last = r
		n++
	}
	if n == 0 {
		t.Fatal("no calibration was produced")
	}
	want, _ := FitSimple(samples)
	if last.Calibration != want.Calibration || last.Field != want.Field {
		t.Errorf("streamed calibration %+v differs from batch %+v", last, want)
	}
}
