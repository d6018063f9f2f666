package ahrs

// Fusion chains sensor calibration, gyroscope offset correction and the
// AHRS algorithm for one sensor session.
// Samples are stamped with a time in seconds; the interval between
// successive stamps is the integration step.
type Fusion struct {
	Gyroscope     InertialCalibration
	Accelerometer InertialCalibration
	Magnetometer  MagneticCalibration

	ahrs   *State
	offset *Offset
	last   float64 // Time stamp of the latest accepted sample, s
}

// NewFusion returns a pipeline with identity calibrations for sensors
// sampled at sampleRate Hz.
func NewFusion(sampleRate int, settings Settings) *Fusion {
	return NewFusionWithOffset(settings, InitializeOffset(sampleRate))
}

// NewFusionWithOffset returns a pipeline with identity calibrations that
// uses the given gyroscope offset estimator.
func NewFusionWithOffset(settings Settings, offset *Offset) *Fusion {
	s := Initialize()
	s.SetSettings(settings)
	return &Fusion{
		Gyroscope:     IdentityInertialCalibration(),
		Accelerometer: IdentityInertialCalibration(),
		Magnetometer:  IdentityMagneticCalibration(),
		ahrs:          s,
		offset:        offset,
	}
}

// step returns the interval since the latest accepted sample.
// A time stamp that does not advance is rejected.
func (f *Fusion) step(t float64) (dt float64, ok bool) {
	dt = t - f.last
	if !(dt > 0) {
		return 0, false
	}
	f.last = t
	return dt, true
}

func (f *Fusion) inertial(gyroscope, accelerometer Vector) (Vector, Vector) {
	gyroscope = f.offset.Update(f.Gyroscope.Apply(gyroscope))
	return gyroscope, f.Accelerometer.Apply(accelerometer)
}

// Update processes a raw sample taken at time t, s.
// A zero magnetometer sample means there is no magnetometer and is passed
// on uncalibrated.
// It reports false, and leaves the estimate unchanged, if t does not
// advance on the previous sample.
func (f *Fusion) Update(gyroscope, accelerometer, magnetometer Vector, t float64) bool {
	dt, ok := f.step(t)
	if !ok {
		return false
	}
	gyroscope, accelerometer = f.inertial(gyroscope, accelerometer)
	if !magnetometer.IsZero() {
		magnetometer = f.Magnetometer.Apply(magnetometer)
	}
	f.ahrs.Update(gyroscope, accelerometer, magnetometer, dt)
	return true
}

// UpdateNoMagnetometer processes a raw sample without magnetometer data.
func (f *Fusion) UpdateNoMagnetometer(gyroscope, accelerometer Vector, t float64) bool {
	dt, ok := f.step(t)
	if !ok {
		return false
	}
	gyroscope, accelerometer = f.inertial(gyroscope, accelerometer)
	f.ahrs.UpdateNoMagnetometer(gyroscope, accelerometer, dt)
	return true
}

// UpdateExternalHeading processes a raw sample with a heading, degrees,
// in place of magnetometer data.
func (f *Fusion) UpdateExternalHeading(gyroscope, accelerometer Vector, heading, t float64) bool {
	dt, ok := f.step(t)
	if !ok {
		return false
	}
	gyroscope, accelerometer = f.inertial(gyroscope, accelerometer)
	f.ahrs.UpdateExternalHeading(gyroscope, accelerometer, heading, dt)
	return true
}

// Euler returns the orientation estimate in degrees.
func (f *Fusion) Euler() Euler {
	return f.ahrs.Euler()
}

func (f *Fusion) Quaternion() Quaternion {
	return f.ahrs.Quaternion()
}

func (f *Fusion) EarthAcceleration() Vector {
	return f.ahrs.EarthAcceleration()
}

// AHRS returns the underlying AHRS state for queries and settings changes.
func (f *Fusion) AHRS() *State {
	return f.ahrs
}

// Offset returns the gyroscope offset estimator.
func (f *Fusion) Offset() *Offset {
	return f.offset
}
