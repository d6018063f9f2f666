package ahrs

import "testing"

func TestFusionRejectsStaleTimestamps(t *testing.T) {
	f := NewFusion(100, DefaultSettings())
	gyr, acc := Vector{Z: 10}, Vector{Z: 1}

	if !f.UpdateNoMagnetometer(gyr, acc, 0.01) {
		t.Fatal("first sample rejected")
	}
	q := f.Quaternion()
	for _, ts := range []float64{0.01, 0.005, -1} {
		if f.UpdateNoMagnetometer(gyr, acc, ts) {
			t.Errorf("sample at %v accepted after 0.01", ts)
		}
	}
	if f.Quaternion() != q {
		t.Error("rejected samples changed the estimate")
	}
	if !f.UpdateExternalHeading(gyr, acc, 0, 0.02) {
		t.Error("sample at 0.02 rejected")
	}
}

func TestFusionAppliesCalibration(t *testing.T) {
	truth := Euler{Roll: 15, Pitch: 5, Yaw: -40}
	acc, mag := measure(EulerToQuaternion(truth), NWU)

	f := NewFusion(100, DefaultSettings())
	f.Accelerometer.Sensitivity = Vector{0.5, 0.5, 0.5}
	f.Accelerometer.Offset = Vector{0.1, 0, 0}
	f.Gyroscope.Offset = Vector{1, -2, 0.5}
	f.Magnetometer.HardIron = Vector{20, -10, 5}

	// Raw samples carry the distortions the calibration removes
	rawAcc := acc.Scale(2).Add(Vector{0.1, 0, 0})
	rawMag := mag.Add(Vector{20, -10, 5})
	rawGyr := Vector{1, -2, 0.5}

	for i := 1; i <= 1000; i++ {
		f.Update(rawGyr, rawAcc, rawMag, float64(i)*dt)
	}
	if e := f.Euler(); eulerDiffers(e, truth, 0.1) {
		t.Errorf("converged to %+v, expected %+v", e, truth)
	}
	if a := f.EarthAcceleration(); a.Magnitude() > 1e-3 {
		t.Errorf("earth acceleration %v at rest", a)
	}
	if f.AHRS().Flags().Initialising {
		t.Error("still initialising")
	}
	if !f.Offset().Bias().IsZero() {
		t.Errorf("offset estimator picked up a bias %v from calibrated samples", f.Offset().Bias())
	}
}

func TestFusionMissingMagnetometerIgnoresHardIron(t *testing.T) {
	f := NewFusion(25, DefaultSettings())
	f.Magnetometer.HardIron = Vector{0, -10, 0}

	for i := 1; i <= 500; i++ {
		f.Update(Vector{}, Vector{Z: 1}, Vector{}, float64(i)*0.04)
	}
	if e := f.Euler(); eulerDiffers(e, Euler{}, 1e-6) {
		t.Errorf("level and still without a magnetometer, got %+v", e)
	}
	if !f.AHRS().InternalStates().MagnetometerIgnored {
		t.Error("hard iron correction of a missing magnetometer used as a field")
	}
}
